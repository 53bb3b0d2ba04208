package soti

import (
	"github.com/sigurn/crc16"
)

/*
 * Frame check sequence used by AX.25 (ISO 3309 / CRC-16/X.25), transmitted
 * low octet first.
 *
 * Checking is optional.  Frames from the reference ground station were
 * never verified, so the receiver only calls this when asked to.
 */

var fcsTable = crc16.MakeTable(crc16.CRC16_X_25)

func fcsCalc(data []byte) uint16 {
	return crc16.Checksum(data, fcsTable)
}
