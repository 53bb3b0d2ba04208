package soti

/*------------------------------------------------------------------
 *
 * Name:	soti-genframes
 *
 * Purpose:	Test program for generating a bit stream of AX.25 frames,
 *		as the SDR flow graph would send it.
 *
 * Description:	Given frames are HDLC encoded (FCS, bit stuffing, flags)
 *		and sent as UDP datagrams of random size, so frames and
 *		flags straddle datagram boundaries the way they do off
 *		the air.
 *
 * Examples:	Default frames to the default decoder address:
 *
 *			soti-genframes
 *			soti-rfdecode
 *
 *		User-defined content:
 *
 *			echo "N0CALL-1>CQ:This is a test" | soti-genframes -
 *
 *			echo "N0CALL>CQ:Test line 1" >  z.txt
 *			echo "N0CALL>CQ:Test line 2" >> z.txt
 *			soti-genframes z.txt
 *
 *		Write the stream to a file instead:
 *
 *			soti-genframes -o stream.bin
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"os"
	"strings"
	"time"
)

// GenFramesOptions controls how frames are turned into datagrams.
type GenFramesOptions struct {
	PreambleFlags int
	MaxChunk      int           // largest datagram, in bytes
	Interval      time.Duration // between datagrams
	Corrupt       int           // flip a bit in every Nth frame, 0 for none
}

// DefaultGenFrames is what is sent when no input is given.
func DefaultGenFrames(count int) []string {
	var lines = make([]string, 0, count)
	for i := range count {
		lines = append(lines, IfThenElse(i == 0, "N0CALL>CQ:TEST", fmt.Sprintf("N0CALL>CQ:TEST %d", i)))
	}

	return lines
}

/*------------------------------------------------------------------
 *
 * Name:	GenerateStream
 *
 * Purpose:	Encode monitor format lines into one byte stream.
 *
 * Inputs:	lines	- "SRC[-n]>DST[-n]:info", one frame each.
 *
 * Returns:	The stream, and how many frames were corrupted.
 *
 * Description:	Frames are back to back.  Each starts with its own
 *		preamble flags and ends with a closing flag.  The stream
 *		is padded to a whole byte with zeros, which a receiver
 *		sees as a run of no flags.
 *
 *------------------------------------------------------------------*/

func GenerateStream(lines []string, opts GenFramesOptions, r *rand.Rand) ([]byte, int, error) {
	var bits []byte
	var corrupted = 0

	for n, line := range lines {
		var frame, err = AX25FromText(line)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d %q: %w", n+1, line, err)
		}

		var encoded = HDLCEncodeBits(frame, opts.PreambleFlags)

		if opts.Corrupt > 0 && (n+1)%opts.Corrupt == 0 {
			// Somewhere in the stuffed body, well clear of the flags.
			var body = len(encoded) - 8*(opts.PreambleFlags+2)
			if body > 0 {
				encoded[8*(opts.PreambleFlags+1)+r.IntN(body)] ^= 1
				corrupted++
			}
		}

		bits = append(bits, encoded...)
	}

	return packBits(bits), corrupted, nil
}

// ChunkStream cuts stream into pieces of 1 to maxChunk bytes.
func ChunkStream(stream []byte, maxChunk int, r *rand.Rand) [][]byte {
	maxChunk = max(maxChunk, 1)

	var chunks [][]byte
	for len(stream) > 0 {
		var n = min(1+r.IntN(maxChunk), len(stream))
		chunks = append(chunks, stream[:n])
		stream = stream[n:]
	}

	return chunks
}

func GenFramesMain() {
	os.Exit(runGenFrames(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runGenFrames(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var fs = newFlagSet("soti-genframes", stderr, "send HDLC encoded AX.25 frames as a UDP bit stream")
	var common = addCommonFlags(fs)

	var dest = fs.StringP("dest", "d", "", "UDP address to send to.  Default is rf.listen from the configuration.")
	var output = fs.StringP("output", "o", "", "Write the stream to this file instead of sending it.")
	var count = fs.IntP("count", "n", 10, "Number of default frames when no input is given.")
	var preamble = fs.IntP("preamble", "p", 4, "Flags sent before each frame.")
	var maxChunk = fs.Int("max-chunk", 64, "Largest datagram, in bytes.")
	var interval = fs.Duration("interval", 10*time.Millisecond, "Time between datagrams.")
	var corrupt = fs.Int("corrupt", 0, "Flip one bit in every Nth frame, to exercise error handling.")
	var seed = fs.Uint64("seed", 1, "Random seed, for repeatable chunking.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "soti-genframes - send HDLC encoded AX.25 frames as a UDP bit stream\n\n")
		fmt.Fprintf(stderr, "Usage: soti-genframes [options] [file | -]\n\n")
		fmt.Fprintf(stderr, "Each input line is one frame, \"SRC>DST:info\".\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *common.help {
		fs.Usage()
		return 0
	}

	if *common.version {
		printVersion(stdout, "soti-genframes", false)
		return 0
	}

	var cfg, _, err = common.loadConfig(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var logger, lerr = NewLogger(stderr, cfg.LogLevel, cfg.LogFormat, "")
	if lerr != nil {
		fmt.Fprintln(stderr, lerr)
		return 1
	}

	var lines []string
	if fs.NArg() == 0 {
		lines = DefaultGenFrames(*count)
	} else {
		lines, err = readFrameLines(fs.Arg(0), stdin)
		if err != nil {
			logger.Error("Could not read frames", "err", err)
			return 1
		}
	}

	var opts = GenFramesOptions{
		PreambleFlags: *preamble,
		MaxChunk:      *maxChunk,
		Interval:      *interval,
		Corrupt:       *corrupt,
	}

	var r = rand.New(rand.NewPCG(*seed, *seed)) //nolint:gosec

	var stream, corrupted, gerr = GenerateStream(lines, opts, r)
	if gerr != nil {
		logger.Error("Bad frame", "err", gerr)
		return 1
	}

	if *output != "" {
		if err := os.WriteFile(*output, stream, 0o644); err != nil {
			logger.Error("Could not write stream", "err", err)
			return 1
		}
		logger.Info("Stream written", "file", *output, "frames", len(lines), "corrupted", corrupted, "bytes", len(stream))
		return 0
	}

	var addr = IfThenElse(*dest != "", *dest, cfg.RF.Listen)

	var ctx, stop = signalContext()
	defer stop()

	var sent, serr = sendChunks(ctx, addr, ChunkStream(stream, opts.MaxChunk, r), opts.Interval)
	if serr != nil {
		logger.Error("Send failed", "addr", addr, "err", serr)
		return 1
	}

	logger.Info("Stream sent", "addr", addr, "frames", len(lines), "corrupted", corrupted, "datagrams", sent, "bytes", len(stream))

	return 0
}

// readFrameLines reads monitor format lines from a file, or stdin for "-".
// Blank lines and lines starting with # are skipped.
func readFrameLines(name string, stdin io.Reader) ([]string, error) {
	var in = stdin
	if name != "-" {
		var f, err = os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var lines []string
	var scanner = bufio.NewScanner(in)
	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	return lines, scanner.Err()
}

func sendChunks(ctx context.Context, addr string, chunks [][]byte, interval time.Duration) (int, error) {
	var d net.Dialer
	var conn, err = d.DialContext(ctx, "udp", addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	for n, chunk := range chunks {
		if _, err := conn.Write(chunk); err != nil {
			return n, err
		}

		if interval > 0 {
			select {
			case <-ctx.Done():
				return n + 1, nil
			case <-time.After(interval):
			}
		}
	}

	return len(chunks), nil
}
