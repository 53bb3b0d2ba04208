package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	The byte stream to and from the satellite bus.
 *
 * Description:	Three kinds of device:
 *
 *		/dev/...	A real serial port at 115200 baud.
 *
 *		virtual		A pseudo terminal.  Whatever is connected to
 *				the other side (a simulator, or a bench
 *				script) plays the part of the satellite.
 *				Its name is printed, and a symlink is made
 *				so the name does not change between runs.
 *
 *		none		No satellite at all.  Writes are thrown
 *				away and nothing is ever read, so the
 *				console still works for trying commands.
 *
 *		Reads give up after a timeout so the reader can notice
 *		shutdown.  That shows up as errReadTimeout.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

const (
	DeviceVirtual = "virtual"
	DeviceNone    = "none"

	VIRTUAL_BUS_SYMLINK = "/tmp/soti-bus"
)

var errReadTimeout = errors.New("read timeout")

type Device interface {
	io.ReadWriteCloser

	// Name is what to tell the user: the port, or the path to connect
	// to for a virtual device.
	Name() string
}

// OpenDevice opens the device named in cfg.
func OpenDevice(cfg SerialConfig) (Device, error) {
	switch cfg.Device {
	case DeviceNone:
		return newNullDevice(cfg.ReadTimeout), nil
	case DeviceVirtual:
		return openVirtualDevice(cfg.ReadTimeout)
	default:
		var fd, err = serialPortOpen(cfg.Device, cfg.Baud, cfg.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return &serialDevice{t: fd, name: cfg.Device}, nil
	}
}

type serialDevice struct {
	t    *term.Term
	name string
}

func (d *serialDevice) Read(p []byte) (int, error) {
	var n, err = d.t.Read(p)

	// VTIME expired with nothing received.
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, errReadTimeout
	}

	return n, err
}

func (d *serialDevice) Write(p []byte) (int, error) {
	var n, err = d.t.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (d *serialDevice) Close() error {
	return d.t.Close()
}

func (d *serialDevice) Name() string {
	return d.name
}

type virtualDevice struct {
	ptmx        *os.File
	pts         *os.File
	readTimeout time.Duration
	symlink     string
}

/*-------------------------------------------------------------------
 *
 * Name:	openVirtualDevice
 *
 * Purpose:	Create a pseudo terminal to stand in for the serial port.
 *
 * Description:	We keep our own handle on the slave side open; without
 *		it, reads on the master fail with EIO until somebody
 *		else opens it.
 *
 *		The slave is put in raw mode so the line discipline does
 *		not eat or translate binary message bytes.
 *
 *--------------------------------------------------------------------*/

func openVirtualDevice(readTimeout time.Duration) (*virtualDevice, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	if err := makeRaw(pts); err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("pseudo terminal %s: %w", pts.Name(), err)
	}

	var d = &virtualDevice{ptmx: ptmx, pts: pts, readTimeout: readTimeout}

	os.Remove(VIRTUAL_BUS_SYMLINK)
	if err := os.Symlink(pts.Name(), VIRTUAL_BUS_SYMLINK); err == nil {
		d.symlink = VIRTUAL_BUS_SYMLINK
	}

	return d, nil
}

func makeRaw(f *os.File) error {
	var fd = int(f.Fd())

	var tio, err = unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Same as cfmakeraw(3)
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}

	return nil
}

func (d *virtualDevice) Read(p []byte) (int, error) {
	if d.readTimeout > 0 {
		// Not every platform can poll a pty; then reads simply block.
		_ = d.ptmx.SetReadDeadline(time.Now().Add(d.readTimeout))
	}

	var n, err = d.ptmx.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, errReadTimeout
	}

	return n, err
}

func (d *virtualDevice) Write(p []byte) (int, error) {
	return d.ptmx.Write(p)
}

func (d *virtualDevice) Close() error {
	if d.symlink != "" {
		os.Remove(d.symlink)
	}

	var err = d.ptmx.Close()
	d.pts.Close()

	return err
}

func (d *virtualDevice) Name() string {
	if d.symlink != "" {
		return fmt.Sprintf("%s (%s)", d.pts.Name(), d.symlink)
	}

	return d.pts.Name()
}

type nullDevice struct {
	readTimeout time.Duration
	closed      chan struct{}
	once        sync.Once
}

func newNullDevice(readTimeout time.Duration) *nullDevice {
	return &nullDevice{
		readTimeout: IfThenElse(readTimeout > 0, readTimeout, 100*time.Millisecond),
		closed:      make(chan struct{}),
	}
}

func (d *nullDevice) Read(_ []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, io.EOF
	case <-time.After(d.readTimeout):
		return 0, errReadTimeout
	}
}

func (d *nullDevice) Write(p []byte) (int, error) {
	return len(p), nil
}

func (d *nullDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *nullDevice) Name() string {
	return DeviceNone
}
