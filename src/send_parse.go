package soti

/*------------------------------------------------------------------
 *
 * Purpose:	Parse the console's "send" command into a Message.
 *
 * Description:	send <CMD> [arg ...] [key=value ...]
 *
 *		CMD is a command name (any case, '-' or '_') or number.
 *
 *		Each arg is packed little endian into the body, in order:
 *
 *			5  300  0x0102  0b101  -3  PWR  CDH_SET_RTC
 *			(u8)5  (i16)-300  (32)7  (i8)200
 *
 *		Without a cast the width is the smallest of 1, 2 or 4
 *		bytes that holds the magnitude (for hex and binary the
 *		number of digits written counts, so 0x0001 is 2 bytes),
 *		and the value is signed only when it has a minus sign.
 *		The sign does not widen it: -128 is 1 byte and -200 is an
 *		underflow, so write (i16)-200.
 *
 *		Options: priority=N, recipient=NODE, sender=NODE.
 *
 *		Values that do not fit are errors.  The one exception is a
 *		positive literal given a signed cast, which is stored as
 *		its two's complement bit pattern, e.g. (i8)255 is -1.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"math/bits"
	"strconv"
	"strings"
)

// SendDefaults fills in whatever the user did not give.
type SendDefaults struct {
	Priority int
	Sender   NodeID
}

// ParseSend parses everything after "send".  All failures are
// *ArgumentError.
func ParseSend(line string, defaults SendDefaults) (Message, error) {
	var parts = strings.Fields(line)
	if len(parts) == 0 {
		return Message{}, argErrorf("", "missing command")
	}

	var cmd, err = ParseCmdID(parts[0])
	if err != nil {
		return Message{}, argErrorf(parts[0], "unknown command")
	}

	var body = make([]byte, 0, DATA_SIZE)
	var options = map[string]string{}

	for _, part := range parts[1:] {
		if key, value, found := strings.Cut(part, "="); found {
			options[strings.ToLower(key)] = value
			continue
		}

		var b, err = parseSendArg(part)
		if err != nil {
			return Message{}, err
		}

		if len(body)+len(b) > DATA_SIZE {
			return Message{}, argErrorf(part, "arguments exceed %d bytes", DATA_SIZE)
		}

		body = append(body, b...)
	}

	var priority = defaults.Priority
	var sender = defaults.Sender
	var recipient = cmd.Owner()
	var recipientGiven = false

	for key, value := range options {
		switch key {
		case "priority":
			var p, err = strconv.Atoi(value)
			if err != nil {
				return Message{}, argErrorf(value, "invalid priority")
			}
			priority = p
		case "recipient", "dest":
			var n, err = ParseNodeID(value)
			if err != nil {
				return Message{}, argErrorf(value, "invalid recipient")
			}
			recipient = n
			recipientGiven = true
		case "sender":
			var n, err = ParseNodeID(value)
			if err != nil || !n.Valid() {
				return Message{}, argErrorf(value, "invalid sender")
			}
			sender = n
		default:
			return Message{}, argErrorf(key, "unknown option")
		}
	}

	if !recipientGiven && recipient == NodeUnspecified {
		return Message{}, argErrorf(cmd.String(), "recipient=NODE is required for")
	}

	var m, merr = NewMessage(priority, sender, recipient, cmd, body)
	if merr != nil {
		return Message{}, merr
	}

	m.Source = SourceUser

	return m, nil
}

// parseSendArg returns the little endian bytes for one argument.
func parseSendArg(part string) ([]byte, error) {
	var arg = part

	var explicit = strings.HasPrefix(arg, "(")
	var signed bool
	var size int

	if explicit {
		var end = strings.Index(arg, ")")
		if end <= 1 {
			return nil, argErrorf(part, "invalid cast")
		}

		var typ = arg[1:end]
		var digits = strings.TrimLeft(typ, "iu")
		if len(typ)-len(digits) > 1 {
			return nil, argErrorf(part, "invalid cast")
		}
		signed = typ[0] == 'i'

		var width, err = strconv.Atoi(digits)
		if err != nil || (width != 8 && width != 16 && width != 32) {
			return nil, argErrorf(part, "cast width must be 8, 16 or 32")
		}
		size = width / 8

		arg = arg[end+1:]
	}

	var negative = strings.HasPrefix(arg, "-")
	arg = strings.TrimPrefix(arg, "-")

	var value, literalBytes, err = parseSendLiteral(arg)
	if err != nil {
		return nil, argErrorf(part, "invalid argument")
	}

	if !explicit {
		signed = negative

		size = 1
		for size < literalBytes {
			size *= 2
		}
		if size > 4 {
			return nil, argErrorf(part, "overflow")
		}
	}

	var maxUnsigned uint64 = 1<<(8*size) - 1
	var maxSigned = maxUnsigned / 2

	switch {
	case value > maxUnsigned:
		return nil, argErrorf(part, "overflow")
	case negative && !signed:
		return nil, argErrorf(part, "cannot be unsigned and negative")
	case negative && value > maxSigned+1:
		return nil, argErrorf(part, "underflow")
	}

	// A positive value above maxSigned under a signed cast is already
	// the two's complement pattern it stands for.
	if negative {
		value = -value & maxUnsigned
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)

	return buf[:size], nil
}

// parseSendLiteral returns the magnitude and how many bytes the literal
// as written needs.
func parseSendLiteral(s string) (uint64, int, error) {
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		var v, err = strconv.ParseUint(s[2:], 16, 64)
		return v, (len(s) - 2 + 1) / 2, err
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		var v, err = strconv.ParseUint(s[2:], 2, 64)
		return v, (len(s) - 2 + 7) / 8, err
	}

	var v uint64
	if d, err := strconv.ParseUint(s, 10, 64); err == nil {
		v = d
	} else if n, nerr := parseNodeName(s); nerr == nil {
		v = uint64(n)
	} else if c, cerr := ParseCmdID(s); cerr == nil {
		v = uint64(c)
	} else {
		return 0, 0, err
	}

	return v, max(1, (bits.Len64(v)+7)/8), nil
}

// Node names only; numbers are handled by the caller.
func parseNodeName(s string) (NodeID, error) {
	if _, err := strconv.Atoi(s); err == nil {
		return 0, strconv.ErrSyntax
	}

	return ParseNodeID(s)
}
