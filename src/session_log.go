package soti

/*------------------------------------------------------------------
 *
 * Purpose:	Keep the messages of one console session and save them
 *		when the session ends.
 *
 * Description: Everything that went to or came from the satellite
 *		is written as one YAML document, so it is easy to read
 *		and easy to load for later processing:
 *
 *			session-id: 0b9d...
 *			date: 2025-01-31
 *			time: "14:03:22"
 *			session-length: "00:12:09"
 *			port: /dev/ttyUSB0
 *			messages:
 *			  - time: "14:03:25"
 *			    source: user
 *			    ...
 *
 *		The file name comes from a strftime pattern, taken at the
 *		start of the session.  Optionally zstd compressed.
 *
 *		Separately, a history that the console can search and
 *		clear is kept in memory.  Clearing it doesn't remove
 *		anything from the saved log.
 *
 *------------------------------------------------------------------*/

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/lestrrat-go/strftime"
	"gopkg.in/yaml.v3"
)

type SessionLog struct {
	ID    uuid.UUID
	Start time.Time
	Port  string

	mu       sync.Mutex
	messages []*FieldMap // everything, for the file
	history  []Record    // what query can see

	now func() time.Time
}

func NewSessionLog(port string) *SessionLog {
	return newSessionLogAt(port, time.Now)
}

func newSessionLogAt(port string, now func() time.Time) *SessionLog {
	return &SessionLog{
		ID:    uuid.New(),
		Start: now(),
		Port:  port,
		now:   now,
	}
}

// Emit keeps message records.  Frames and drops are not part of a session.
func (s *SessionLog) Emit(r Record) {
	if r.Kind != RecordMessage {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, r.Fields)
	s.history = append(s.history, r)
}

// Query returns the history for one command, oldest first.
func (s *SessionLog) Query(cmd CmdID) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []Record
	for _, r := range s.history {
		if v, ok := r.Fields.Get("cmd"); ok && v == cmd {
			found = append(found, r)
		}
	}

	return found
}

// Clear forgets the searchable history and says how much was dropped.
func (s *SessionLog) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n = len(s.history)
	s.history = nil

	return n
}

// Len is the number of messages that will be saved.
func (s *SessionLog) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messages)
}

type sessionDocument struct {
	SessionID     string      `yaml:"session-id"`
	Date          string      `yaml:"date"`
	Time          string      `yaml:"time"`
	SessionLength string      `yaml:"session-length"`
	Port          string      `yaml:"port"`
	Messages      []*FieldMap `yaml:"messages"`
}

// formatSessionLength gives hh:mm:ss, with hours allowed past 24.
func formatSessionLength(d time.Duration) string {
	var secs = int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}

	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// WriteYAML writes the session document as of end.
func (s *SessionLog) WriteYAML(w io.Writer, end time.Time) error {
	s.mu.Lock()
	var doc = sessionDocument{
		SessionID:     s.ID.String(),
		Date:          s.Start.Format("2006-01-02"),
		Time:          s.Start.Format(logTimeFormat),
		SessionLength: formatSessionLength(end.Sub(s.Start)),
		Port:          s.Port,
		Messages:      append([]*FieldMap(nil), s.messages...),
	}
	s.mu.Unlock()

	var enc = yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("session log: %w", err)
	}

	return enc.Close()
}

// FileName is the session's file name under cfg, without the directory.
func (s *SessionLog) FileName(cfg SessionConfig) (string, error) {
	var name, err = strftime.Format(cfg.FileFormat, s.Start)
	if err != nil {
		return "", fmt.Errorf("session file_format %q: %w", cfg.FileFormat, err)
	}

	return name + IfThenElse(cfg.Compress, ".log.zst", ".log"), nil
}

/*------------------------------------------------------------------
 *
 * Name:	Save
 *
 * Purpose:	Write the session file at the end of the session.
 *
 * Returns:	Full path of the file written.
 *
 * Description:	The directory is created if needed, including parents.
 *
 *------------------------------------------------------------------*/

func (s *SessionLog) Save(cfg SessionConfig, logger *log.Logger) (string, error) {
	var name, nameErr = s.FileName(cfg)
	if nameErr != nil {
		return "", nameErr
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("session log directory %q: %w", cfg.Dir, err)
	}

	var buf bytes.Buffer
	if err := s.WriteYAML(&buf, s.now()); err != nil {
		return "", err
	}

	var plain = buf.Len()
	var out = buf.Bytes()

	if cfg.Compress {
		var enc, err = zstd.NewWriter(nil)
		if err != nil {
			return "", fmt.Errorf("session log zstd: %w", err)
		}
		out = enc.EncodeAll(out, nil)
		enc.Close()
	}

	var path = filepath.Join(cfg.Dir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("session log: %w", err)
	}

	logger.Info("Session saved", "file", path, "messages", s.Len(),
		"size", humanize.Bytes(uint64(len(out))),
		"uncompressed", IfThenElse(cfg.Compress, humanize.Bytes(uint64(plain)), ""))

	return path, nil
}

// ReadSessionFile loads a saved session file, compressed or not, as a
// generic YAML document.
func ReadSessionFile(path string) (map[string]any, error) {
	var data, err = os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) == ".zst" {
		var dec, derr = zstd.NewReader(nil)
		if derr != nil {
			return nil, derr
		}
		defer dec.Close()

		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}
