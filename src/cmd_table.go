package soti

/*------------------------------------------------------------------
 *
 * Purpose:	Body layouts for the bus commands.
 *
 * Description:	Each command that carries arguments has an ordered list
 *		of fields.  Adding a command is a table change only;
 *		DecodeBody and the console's "list" command are driven
 *		entirely by commandFields.
 *
 *		Multi-byte integers and floats are little endian.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

type FieldKind int

const (
	FieldUnsigned FieldKind = iota
	FieldSigned
	FieldFloat
	FieldHex
	FieldBitmap
	FieldBool
	FieldNode
	FieldCmd
)

var fieldKindNames = [...]string{
	FieldUnsigned: "unsigned",
	FieldSigned:   "signed",
	FieldFloat:    "float",
	FieldHex:      "hex",
	FieldBitmap:   "bitmap",
	FieldBool:     "bool",
	FieldNode:     "node",
	FieldCmd:      "command",
}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}

	return fmt.Sprintf("FieldKind(%d)", int(k))
}

type FieldSpec struct {
	Name   string
	Offset int
	Width  int
	Kind   FieldKind
}

func (f FieldSpec) String() string {
	return fmt.Sprintf("%s(%s%d@%d)", f.Name, f.Kind, f.Width*8, f.Offset)
}

func u8At(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldUnsigned}
}

func u16At(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 2, Kind: FieldUnsigned}
}

func u32At(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 4, Kind: FieldUnsigned}
}

func i8At(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldSigned}
}

func f32At(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 4, Kind: FieldFloat}
}

// hexFrom runs from offset to the end of the body.
func hexFrom(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: DATA_SIZE - offset, Kind: FieldHex}
}

func bitmapAt(name string, offset int, width int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: width, Kind: FieldBitmap}
}

func boolAt(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldBool}
}

func nodeAt(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldNode}
}

func cmdAt(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldCmd}
}

var commandFields = map[CmdID][]FieldSpec{
	COMM_GET_TELEMETRY:          {u8At("telemetry-key", 0)},
	COMM_SET_TELEMETRY_INTERVAL: {u8At("telemetry-key", 0), u16At("interval", 1)},
	COMM_GET_TELEMETRY_INTERVAL: {u8At("telemetry-key", 0)},
	COMM_UPDATE_START:           {u32At("address", 0)},
	COMM_UPDATE_LOAD:            {hexFrom("data", 0)},

	CDH_PROCESS_RUNTIME_ERROR: {u8At("error-code", 0), u8At("context-code", 1), hexFrom("debug-data", 2)},
	CDH_PROCESS_COMMAND_ERROR: {u8At("error-code", 0), cmdAt("command-id", 1), hexFrom("debug-data", 2)},
	CDH_PROCESS_NOTIFICATION:  {u8At("notification-id", 0)},
	CDH_PROCESS_TELEMETRY_REPORT: {
		u8At("telemetry-key", 0),
		u8At("sequence-number", 1),
		u8At("packet-number", 2),
		hexFrom("telemetry", 3),
	},
	CDH_PROCESS_RETURN:   {cmdAt("command-id", 0), hexFrom("data", 1)},
	CDH_PROCESS_LED_TEST: {bitmapAt("bitmap", 0, 2)},
	CDH_SET_RTC:          {u32At("unix-timestamp", 0)},
	CDH_RESET_SUBSYSTEM:  {nodeAt("subsystem-id", 0)},

	PWR_SET_SUBSYSTEM_POWER:      {nodeAt("subsystem-id", 0), boolAt("power", 1)},
	PWR_GET_SUBSYSTEM_POWER:      {nodeAt("subsystem-id", 0)},
	PWR_SET_BATTERY_HEATER_POWER: {boolAt("heater-power", 0)},
	PWR_SET_BATTERY_ACCESS:       {boolAt("battery-access", 0)},

	ADCS_SET_MAGNETORQUER_DIRECTION: {u8At("magnetorquer-id", 0), i8At("direction", 1)},
	ADCS_GET_MAGNETORQUER_DIRECTION: {u8At("magnetorquer-id", 0)},
	ADCS_SET_OPERATING_MODE:         {u8At("mode", 0)},

	PLD_SET_ACTIVE_ENVS: {bitmapAt("bitmap", 0, 2)},
	PLD_SET_SETPOINT:    {u8At("well-id", 0), f32At("setpoint", 1)},
	PLD_GET_SETPOINT:    {u8At("well-id", 0)},
	PLD_SET_TOLERANCE:   {f32At("tolerance", 0)},
}

// CommandFields is the body layout for c, nil when it takes no arguments.
func CommandFields(c CmdID) []FieldSpec {
	return commandFields[c]
}

/*-------------------------------------------------------------------
 *
 * Name:	DecodeBody
 *
 * Purpose:	Turn a message body into named values.
 *
 * Returns:	Fields in layout order.  Commands without a layout give
 *		an empty map.  Values are uint64, int64, float32, bool,
 *		string (hex and bitmap), NodeID or CmdID.  A node or
 *		command byte that is not in the enumeration is still
 *		returned as that type and prints as its number.
 *
 *--------------------------------------------------------------------*/

func DecodeBody(c CmdID, body []byte) *FieldMap {
	var out = NewFieldMap()

	// Short bodies read as zero padded, like they would be on the wire.
	var padded [DATA_SIZE]byte
	copy(padded[:], body)

	for _, f := range commandFields[c] {
		out.Set(f.Name, decodeField(f, padded[f.Offset:f.Offset+f.Width]))
	}

	return out
}

func decodeField(f FieldSpec, b []byte) any {
	switch f.Kind {
	case FieldSigned:
		var u = leUint(b)
		var shift = 64 - 8*len(b)
		return int64(u<<shift) >> shift
	case FieldFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case FieldHex:
		return "0x" + hex.EncodeToString(b)
	case FieldBitmap:
		var sb strings.Builder
		sb.WriteString("0b")
		for _, octet := range b {
			fmt.Fprintf(&sb, "%08b", octet)
		}
		return sb.String()
	case FieldBool:
		return b[0] != 0
	case FieldNode:
		return NodeID(b[0])
	case FieldCmd:
		return CmdID(b[0])
	default:
		return leUint(b)
	}
}

func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}
