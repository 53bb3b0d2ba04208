package soti

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*SessionLog, *time.Time) {
	t.Helper()

	var clock = testTime
	var s = newSessionLogAt("/dev/ttyUSB0", func() time.Time { return clock })

	var sent, _ = NewMessage(4, NodeCDH, NodePWR, PWR_SET_SUBSYSTEM_POWER, []byte{1, 1})
	sent.Source = SourceUser
	sent.Time = testTime.Add(3 * time.Second)
	s.Emit(MessageRecord(sent))

	var got, _ = NewMessage(2, NodePWR, NodeCDH, CDH_PROCESS_NOTIFICATION, []byte{9})
	got.Source = SourcePort
	got.Time = testTime.Add(4 * time.Second)
	s.Emit(MessageRecord(got))

	s.Emit(Record{Kind: RecordDrop})

	return s, &clock
}

func Test_SessionLog_WriteYAML(t *testing.T) {
	var s, _ = newTestSession(t)
	require.Equal(t, 2, s.Len())

	var buf bytes.Buffer
	require.NoError(t, s.WriteYAML(&buf, testTime.Add(12*time.Minute+9*time.Second)))

	var want = "session-id: " + s.ID.String() + "\n" +
		"date: \"2025-01-31\"\n" +
		"time: \"14:03:25\"\n" +
		"session-length: \"00:12:09\"\n" +
		"port: /dev/ttyUSB0\n" +
		"messages:\n" +
		"  - time: \"14:03:28\"\n" +
		"    source: user\n" +
		"    priority: 4\n" +
		"    sender-id: CDH\n" +
		"    recipient-id: PWR\n" +
		"    cmd: PWR_SET_SUBSYSTEM_POWER\n" +
		"    body:\n" +
		"      subsystem-id: PWR\n" +
		"      power: true\n" +
		"  - time: \"14:03:29\"\n" +
		"    source: port\n" +
		"    priority: 2\n" +
		"    sender-id: PWR\n" +
		"    recipient-id: CDH\n" +
		"    cmd: CDH_PROCESS_NOTIFICATION\n" +
		"    body:\n" +
		"      notification-id: 9\n"

	assert.Equal(t, want, buf.String())
}

func Test_SessionLog_Save(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var s, clock = newTestSession(t)
		*clock = testTime.Add(90 * time.Minute)

		var cfg = SessionConfig{
			Enabled:    true,
			Dir:        filepath.Join(t.TempDir(), "save-data", "sessions"),
			FileFormat: "%Y-%m-%d_%H%M%S",
			Compress:   compress,
		}

		var path, err = s.Save(cfg, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cfg.Dir, IfThenElse(compress, "2025-01-31_140325.log.zst", "2025-01-31_140325.log")), path)

		var doc, rerr = ReadSessionFile(path)
		require.NoError(t, rerr)

		assert.Equal(t, s.ID.String(), doc["session-id"])
		assert.Equal(t, "01:30:00", doc["session-length"])
		assert.Equal(t, "/dev/ttyUSB0", doc["port"])

		var messages, ok = doc["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)

		var first = messages[0].(map[string]any)
		assert.Equal(t, "PWR_SET_SUBSYSTEM_POWER", first["cmd"])
		assert.Equal(t, map[string]any{"subsystem-id": "PWR", "power": true}, first["body"])
	}
}

func Test_SessionLog_BadFileFormat(t *testing.T) {
	var s, _ = newTestSession(t)

	var _, err = s.FileName(SessionConfig{FileFormat: "%Q"})
	assert.Error(t, err)
}

func Test_SessionLog_QueryClear(t *testing.T) {
	var s, _ = newTestSession(t)

	var found = s.Query(PWR_SET_SUBSYSTEM_POWER)
	require.Len(t, found, 1)
	assert.Equal(t, SourceUser, found[0].Source)

	assert.Empty(t, s.Query(CDH_SET_RTC))

	assert.Equal(t, 2, s.Clear())
	assert.Empty(t, s.Query(PWR_SET_SUBSYSTEM_POWER))
	assert.Equal(t, 0, s.Clear())

	// Still saved.
	assert.Equal(t, 2, s.Len())
}

func Test_formatSessionLength(t *testing.T) {
	assert.Equal(t, "00:00:00", formatSessionLength(0))
	assert.Equal(t, "00:00:00", formatSessionLength(-time.Second))
	assert.Equal(t, "00:12:09", formatSessionLength(12*time.Minute+9*time.Second+300*time.Millisecond))
	assert.Equal(t, "26:00:01", formatSessionLength(26*time.Hour+time.Second))
}
