package soti

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Generate a stream file the way the tool is run from a script, then feed
// it to the RF decoder in random chunks.
func Test_GenFrames_File(t *testing.T) {
	var tmpdir = t.TempDir()
	var file = filepath.Join(tmpdir, "stream.bin")

	var stdout, stderr bytes.Buffer
	var rc = runGenFrames([]string{"-n", "25", "--corrupt", "5", "-o", file}, nil, &stdout, &stderr)
	require.Equal(t, 0, rc, stderr.String())
	assert.Contains(t, stderr.String(), "Stream written")

	var stream, err = os.ReadFile(file)
	require.NoError(t, err)

	var sink recordCollector
	var d = NewRFDecoder(DefaultConfig().RF, &sink, discardLogger(), nil)
	for _, chunk := range ChunkStream(stream, 7, rand.New(rand.NewPCG(3, 4))) { //nolint:gosec
		d.Feed(chunk)
	}

	var infos = map[string]bool{}
	for _, r := range sink.all() {
		if r.Kind == RecordFrame {
			var info, _ = r.Fields.Get("info")
			infos[info.(string)] = true
		}
	}

	// Corrupted frames may still decode (FCS is not checked by default)
	// or be dropped, but never take a neighbour with them.
	for i, line := range DefaultGenFrames(25) {
		if (i+1)%5 != 0 {
			var _, info, _ = strings.Cut(line, ":")
			assert.True(t, infos[info], line)
		}
	}
}

func Test_GenFrames_CheckFCS(t *testing.T) {
	var opts = GenFramesOptions{PreambleFlags: 2, Corrupt: 3}
	var stream, corrupted, err = GenerateStream(DefaultGenFrames(9), opts, rand.New(rand.NewPCG(1, 1))) //nolint:gosec
	require.NoError(t, err)
	require.Equal(t, 3, corrupted)

	var cfg = DefaultConfig().RF
	cfg.CheckFCS = true

	var sink recordCollector
	var d = NewRFDecoder(cfg, &sink, discardLogger(), nil)
	d.Feed(stream)

	var infos []string
	for _, r := range sink.all() {
		if r.Kind == RecordFrame {
			var info, _ = r.Fields.Get("info")
			infos = append(infos, info.(string))
		}
	}

	assert.Equal(t, []string{"TEST", "TEST 1", "TEST 3", "TEST 4", "TEST 6", "TEST 7"}, infos)
}

func Test_GenFrames_Input(t *testing.T) {
	var tmpdir = t.TempDir()
	var file = filepath.Join(tmpdir, "stream.bin")

	var stdin = strings.NewReader("# comment\nN0CALL-1>CQ:This is a test\n\nKD8ABC>APRS-2:second\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runGenFrames([]string{"-o", file, "-"}, stdin, &stdout, &stderr), stderr.String())

	var stream, _ = os.ReadFile(file)

	var sink recordCollector
	NewRFDecoder(DefaultConfig().RF, &sink, discardLogger(), nil).Feed(stream)

	var records = sink.all()
	require.Len(t, records, 2)
	var info, _ = records[0].Fields.Get("info")
	assert.Equal(t, "This is a test", info)
	var dst, _ = records[1].Fields.Get("destination")
	assert.Equal(t, "APRS", dst)
}

func Test_GenFrames_BadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	var rc = runGenFrames([]string{"-o", filepath.Join(t.TempDir(), "x"), "-"}, strings.NewReader("no arrow here\n"), &stdout, &stderr)
	assert.Equal(t, 1, rc)

	rc = runGenFrames([]string{"--bogus"}, nil, &stdout, &stderr)
	assert.Equal(t, 2, rc)

	stdout.Reset()
	rc = runGenFrames([]string{"--version"}, nil, &stdout, &stderr)
	assert.Equal(t, 0, rc)
	assert.Contains(t, stdout.String(), "soti-genframes")
}

// The whole RF path over a real socket.
func Test_GenFrames_UDP(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var src, err = ListenUDP(ctx, "127.0.0.1:0", 20*time.Millisecond)
	require.NoError(t, err)
	defer src.Close()

	var q = NewChunkQueue()
	var sink recordCollector
	var d = NewRFDecoder(DefaultConfig().RF, &sink, discardLogger(), nil)

	go RunReader(ctx, src, q, 1024, "udp", nil) //nolint:errcheck
	go d.Run(ctx, q)

	var stdout, stderr bytes.Buffer
	var rc = runGenFrames([]string{"-d", src.Addr().String(), "-n", "5", "--max-chunk", "16", "--interval", "1ms"}, nil, &stdout, &stderr)
	require.Equal(t, 0, rc, stderr.String())

	assert.Eventually(t, func() bool { return len(sink.all()) == 5 }, 2*time.Second, 5*time.Millisecond)

	for _, r := range sink.all() {
		assert.Equal(t, RecordFrame, r.Kind)
	}
}

func Test_RFDecode_StartupErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, runRFDecode([]string{"--bogus"}, &stdout, &stderr))
	assert.Equal(t, 1, runRFDecode([]string{"--datagram-size", "0"}, &stdout, &stderr))
	assert.Equal(t, 1, runRFDecode([]string{"-l", "256.0.0.1:2000"}, &stdout, &stderr))

	stdout.Reset()
	assert.Equal(t, 0, runRFDecode([]string{"-v"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "soti-rfdecode - Version")
}
