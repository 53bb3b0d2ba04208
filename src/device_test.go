package soti

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NullDevice(t *testing.T) {
	var d, err = OpenDevice(SerialConfig{Device: DeviceNone, ReadTimeout: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "none", d.Name())

	var n, werr = d.Write([]byte{1, 2, 3})
	assert.NoError(t, werr)
	assert.Equal(t, 3, n)

	_, err = d.Read(make([]byte, 8))
	assert.ErrorIs(t, err, errReadTimeout)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	_, err = d.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
}

// The satellite side of a virtual device sends two messages and reads
// back what we write.
func Test_VirtualDevice(t *testing.T) {
	var d, err = openVirtualDevice(20 * time.Millisecond)
	if err != nil {
		t.Skip("no pseudo terminals here:", err)
	}
	defer d.Close()

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var sink recordCollector
	var inbox = NewChunkQueue()
	var decoder = NewMessageDecoder(&sink, discardLogger(), nil)

	go RunReader(ctx, d, inbox, deviceReadSize, "serial", nil) //nolint:errcheck
	go decoder.Run(ctx, inbox)

	var first, _ = NewMessage(3, NodePWR, NodeCDH, CDH_PROCESS_NOTIFICATION, []byte{1})
	var second, _ = NewMessage(3, NodeADCS, NodeCDH, CDH_PROCESS_NOTIFICATION, []byte{2})
	_, err = d.pts.Write(append(first.Serialize(), second.Serialize()...))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(sink.all()) == 2 }, 2*time.Second, 5*time.Millisecond)

	var outbox = NewChunkQueue()
	go RunWriter(ctx, d, outbox, discardLogger()) //nolint:errcheck

	var cmd, _ = NewMessage(4, NodeCDH, NodePWR, PWR_SET_SUBSYSTEM_POWER, []byte{1, 1})
	outbox.Put(cmd.Serialize())

	var got = make([]byte, MSG_SIZE)
	_, err = io.ReadFull(d.pts, got)
	require.NoError(t, err)
	assert.Equal(t, cmd.Serialize(), got)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func Test_RunWriter(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())

	var out lockedBuffer
	var q = NewChunkQueue()
	q.Put([]byte("one"))
	q.Put([]byte("two"))

	var done = make(chan error)
	go func() { done <- RunWriter(ctx, &out, q, discardLogger()) }()

	assert.Eventually(t, func() bool { return string(out.Bytes()) == "onetwo" }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

type stuckWriter struct{}

func (stuckWriter) Write([]byte) (int, error) { return 0, nil }

// A device that accepts nothing must not spin the writer forever.
func Test_RunWriter_ZeroWrite(t *testing.T) {
	var q = NewChunkQueue()
	q.Put([]byte("one"))

	var done = make(chan error)
	go func() { done <- RunWriter(context.Background(), stuckWriter{}, q, discardLogger()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.ErrShortWrite)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not give up")
	}
}

func Test_Soti(t *testing.T) {
	var dir = t.TempDir()

	var stdin = strings.NewReader("send PWR_SET_SUBSYSTEM_POWER PLD 0\nquery PWR_SET_SUBSYSTEM_POWER\nexit\n")
	var stdout, stderr bytes.Buffer

	var rc = runSoti([]string{"-d", "none", "--session-dir", dir, "-z", "--log-level", "warn"}, stdin, &stdout, &stderr)
	require.Equal(t, 0, rc, stderr.String())

	var out = stdout.String()
	assert.Contains(t, out, "Device: none")
	assert.Contains(t, out, "Command: PWR_SET_SUBSYSTEM_POWER\nDestination: Power\n")
	assert.Contains(t, out, "Found 1 results.")

	var files, _ = filepath.Glob(filepath.Join(dir, "*.log.zst"))
	require.Len(t, files, 1)

	var doc, err = ReadSessionFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "none", doc["port"])
	assert.Len(t, doc["messages"], 1)
}

func Test_Soti_BadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, runSoti([]string{"--frobnicate"}, nil, &stdout, &stderr))
	assert.Equal(t, 1, runSoti([]string{"--sender", "MARS"}, nil, &stdout, &stderr))
	assert.Equal(t, 1, runSoti([]string{"--priority", "99", "-d", "none"}, nil, &stdout, &stderr))

	var missing = filepath.Join(t.TempDir(), "nope.yaml")
	assert.Equal(t, 1, runSoti([]string{"-c", missing}, nil, &stdout, &stderr))

	var _, statErr = os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_serialPortOpen_BadSpeed(t *testing.T) {
	var _, err = serialPortOpen("COM1", 12345, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyS0")
}
