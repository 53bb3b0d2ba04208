package soti

/*------------------------------------------------------------------
 *
 * Purpose:	Fixed size messages on the satellite bus.
 *
 * Description:	Every message is 11 bytes:
 *
 *		0	priority (0 - 32)
 *		1	sender node id
 *		2	recipient node id, 0xff when any node may handle it
 *		3	command id
 *		4-10	body, layout depends on the command (cmd_table.go)
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"time"
)

const (
	// Length of a message body in bytes.
	DATA_SIZE = 7

	MSG_HEADER_SIZE = 4
	MSG_SIZE        = MSG_HEADER_SIZE + DATA_SIZE

	MAX_PRIORITY = 32
)

// Where a message came from.
const (
	SourceUser        = "user"
	SourcePort        = "port"
	SourceUnspecified = "unspecified"
)

type Message struct {
	Priority  byte
	Sender    NodeID
	Recipient NodeID
	Cmd       CmdID
	Body      [DATA_SIZE]byte

	// Not transmitted.
	Source string
	Time   time.Time
}

// NewMessage checks the header fields and zero pads or truncates body to
// DATA_SIZE.
func NewMessage(priority int, sender NodeID, recipient NodeID, cmd CmdID, body []byte) (Message, error) {
	if priority < 0 || priority > MAX_PRIORITY {
		return Message{}, argErrorf(fmt.Sprint(priority), "priority must be 0 to %d", MAX_PRIORITY)
	}

	if !sender.Valid() {
		return Message{}, argErrorf(sender.String(), "invalid sender")
	}

	if !recipient.Valid() && recipient != NodeUnspecified {
		return Message{}, argErrorf(recipient.String(), "invalid recipient")
	}

	if !cmd.Valid() {
		return Message{}, argErrorf(cmd.String(), "invalid command")
	}

	var m = Message{
		Priority:  byte(priority),
		Sender:    sender,
		Recipient: recipient,
		Cmd:       cmd,
		Source:    SourceUnspecified,
		Time:      time.Now(),
	}
	copy(m.Body[:], body)

	return m, nil
}

func (m Message) Serialize() []byte {
	var out = make([]byte, 0, MSG_SIZE)

	out = append(out, m.Priority, byte(m.Sender), byte(m.Recipient), byte(m.Cmd))
	out = append(out, m.Body[:]...)

	return out
}

/*-------------------------------------------------------------------
 *
 * Name:	Deserialize
 *
 * Purpose:	Rebuild a message from the wire.
 *
 * Returns:	BadLength unless given exactly MSG_SIZE bytes.
 *		UnknownCommand for a command id outside the enumeration.
 *		UnknownNode for a bad sender, or a bad recipient that is
 *		not the "any node" value.
 *
 *		Priority is reported as received.  Source and Time are
 *		left for the caller.
 *
 *--------------------------------------------------------------------*/

func Deserialize(b []byte) (Message, error) {
	if len(b) != MSG_SIZE {
		return Message{}, &DecodeError{Kind: BadLength, Raw: b, Detail: fmt.Sprintf("%d bytes, want %d", len(b), MSG_SIZE)}
	}

	var m = Message{
		Priority:  b[0],
		Sender:    NodeID(b[1]),
		Recipient: NodeID(b[2]),
		Cmd:       CmdID(b[3]),
	}
	copy(m.Body[:], b[MSG_HEADER_SIZE:])

	if !m.Cmd.Valid() {
		return Message{}, &DecodeError{Kind: UnknownCommand, Raw: b, Detail: fmt.Sprintf("command id %d", b[3])}
	}

	if !m.Sender.Valid() {
		return Message{}, &DecodeError{Kind: UnknownNode, Raw: b, Detail: fmt.Sprintf("sender %d", b[1])}
	}

	if !m.Recipient.Valid() && m.Recipient != NodeUnspecified {
		return Message{}, &DecodeError{Kind: UnknownNode, Raw: b, Detail: fmt.Sprintf("recipient %d", b[2])}
	}

	return m, nil
}

// Fields is the decoded body.
func (m Message) Fields() *FieldMap {
	return DecodeBody(m.Cmd, m.Body[:])
}

func (m Message) String() string {
	return fmt.Sprintf("%s %s>%s p%d {%s}", m.Cmd, m.Sender.DisplayName(), m.Recipient.DisplayName(), m.Priority, m.Fields())
}
