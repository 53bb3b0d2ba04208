package soti

// Decoded output of both pipelines.  How a Record gets formatted (session
// log YAML, console line, JSON over MQTT or a websocket) is up to the sink.

import (
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

type RecordKind string

const (
	RecordFrame   RecordKind = "frame"
	RecordMessage RecordKind = "message"
	RecordDrop    RecordKind = "drop"
)

type Record struct {
	Time   time.Time
	Source string
	Kind   RecordKind
	Fields *FieldMap
	Raw    []byte
}

type RecordSink interface {
	Emit(r Record)
}

// RecordSinkFunc lets an ordinary function be a RecordSink.
type RecordSinkFunc func(r Record)

func (f RecordSinkFunc) Emit(r Record) {
	f(r)
}

// MultiSink hands every record to each sink in turn.  Sinks may be added
// while records are flowing.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []RecordSink
}

func NewMultiSink(sinks ...RecordSink) *MultiSink {
	var m = &MultiSink{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

func (m *MultiSink) Add(s RecordSink) {
	if s == nil {
		return
	}

	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

func (m *MultiSink) Emit(r Record) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sinks {
		s.Emit(r)
	}
}

func FrameRecord(d *DecodedAX25Frame, raw []byte, source string, at time.Time) Record {
	var f = NewFieldMap()
	f.Set("source", d.Source)
	f.Set("source-ssid", d.SourceSSID)
	f.Set("destination", d.Destination)
	f.Set("destination-ssid", d.DestinationSSID)
	f.Set("control", d.Control)
	f.Set("pid", d.ProtocolID)
	f.Set("info", d.Info)

	return Record{Time: at, Source: source, Kind: RecordFrame, Fields: f, Raw: raw}
}

// MessageRecord lays a message out the way the session log shows it.
func MessageRecord(m Message) Record {
	var f = NewFieldMap()
	f.Set("time", m.Time.Format(logTimeFormat))
	f.Set("source", m.Source)
	f.Set("priority", m.Priority)
	f.Set("sender-id", m.Sender)
	f.Set("recipient-id", m.Recipient)
	f.Set("cmd", m.Cmd)
	f.Set("body", m.Fields())

	return Record{Time: m.Time, Source: m.Source, Kind: RecordMessage, Fields: f, Raw: m.Serialize()}
}

func DropRecord(e *DecodeError, source string, at time.Time) Record {
	var f = NewFieldMap()
	f.Set("reason", e.Kind.String())
	if e.Detail != "" {
		f.Set("detail", e.Detail)
	}

	return Record{Time: at, Source: source, Kind: RecordDrop, Fields: f, Raw: e.Raw}
}

// MarshalJSON is what MQTT subscribers and websocket clients receive.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time   time.Time  `json:"time"`
		Source string     `json:"source"`
		Kind   RecordKind `json:"kind"`
		Fields *FieldMap  `json:"fields"`
		Raw    string     `json:"raw,omitempty"`
	}{r.Time, r.Source, r.Kind, r.Fields, hex.EncodeToString(r.Raw)})
}
