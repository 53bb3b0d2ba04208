package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to the serial port that connects us to the
 *		satellite (or the bench setup standing in for it).
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/term"
)

/*-------------------------------------------------------------------
 *
 * Name:	serialPortOpen
 *
 * Purpose:	Open serial port.
 *
 * Inputs:	devicename	- Usually /dev/tty...
 *				  "COMn" also allowed and converted to /dev/ttyS(n-1)
 *
 *		baud		- Speed.  115200 for the satellite bus.
 *				  If 0, leave it alone.
 *
 *		readTimeout	- How long a Read may wait for the first byte.
 *				  Reads return 0 bytes and no error when it
 *				  expires, which lets the reader check for
 *				  shutdown.
 *
 * Returns 	Handle for serial port
 *
 *---------------------------------------------------------------*/

func serialPortOpen(devicename string, baud int, readTimeout time.Duration) (*term.Term, error) {
	var linuxname = devicename

	/* COM1 -> /dev/ttyS0, etc. */
	if len(devicename) > 3 && strings.EqualFold(devicename[:3], "COM") {
		if n, err := strconv.Atoi(devicename[3:]); err == nil {
			linuxname = fmt.Sprintf("/dev/ttyS%d", max(n, 1)-1)
		}
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400:
	default:
		return nil, fmt.Errorf("serial port %s: unsupported speed %d", linuxname, baud)
	}

	var fd, err = term.Open(linuxname, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", linuxname, err)
	}

	if baud != 0 {
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("serial port %s: set speed %d: %w", linuxname, baud, err)
		}
	}

	if readTimeout > 0 {
		if err := fd.SetReadTimeout(readTimeout); err != nil {
			fd.Close()
			return nil, fmt.Errorf("serial port %s: set read timeout: %w", linuxname, err)
		}
	}

	return fd, nil
}
