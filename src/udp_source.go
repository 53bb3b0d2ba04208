package soti

// The SDR flow graph sends demodulated bits as UDP datagrams.  Each
// datagram is just the next piece of the bit stream; frames straddle
// datagram boundaries freely.

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type UDPSource struct {
	conn         *net.UDPConn
	pollInterval time.Duration
}

// ListenUDP binds the RF input.  SO_REUSEADDR lets a restarted decoder
// bind again straight away while the flow graph keeps sending.
func ListenUDP(ctx context.Context, addr string, pollInterval time.Duration) (*UDPSource, error) {
	var lc = net.ListenConfig{
		Control: func(_ string, _ string, c syscall.RawConn) error {
			var serr error
			var err = c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}

	var pc, err = lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on UDP %s: %w", addr, err)
	}

	return &UDPSource{conn: pc.(*net.UDPConn), pollInterval: pollInterval}, nil
}

// Read returns one datagram, or times out after the poll interval so the
// reader can check for shutdown.
func (u *UDPSource) Read(p []byte) (int, error) {
	if err := u.conn.SetReadDeadline(time.Now().Add(u.pollInterval)); err != nil {
		return 0, err
	}

	var n, _, err = u.conn.ReadFromUDP(p)
	return n, err
}

func (u *UDPSource) Addr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDPSource) Close() error {
	return u.conn.Close()
}
