package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Receive side of both pipelines.
 *
 * Description:	Each pipeline is two goroutines and a ChunkQueue:
 *
 *		RunReader	reads the transport and puts whatever
 *				arrived on the queue.  It does nothing else,
 *				so slow decoding or logging can never make
 *				it miss input.
 *
 *		RFDecoder.Run	takes chunks off the queue, finds HDLC
 *		MessageDecoder.Run	frames (or 11 byte bus messages),
 *				decodes them and hands the results to a
 *				RecordSink.
 *
 *		Decoding is strictly in arrival order.  The bit buffer
 *		and the partial message buffer belong to the decoder
 *		goroutine alone.
 *
 *		Cancelling the context stops both.  The reader notices
 *		within one read timeout; whatever is still queued is
 *		dropped.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Name:        RunReader
 *
 * Purpose:     Transport reader goroutine.
 *
 * Inputs:	r		- Transport.  Reads that time out must fail
 *				  with errReadTimeout or os.ErrDeadlineExceeded.
 *		bufSize		- Largest read.
 *		transport	- Label for metrics.
 *
 * Returns:	nil when ctx is cancelled, otherwise the read error that
 *		ended it.
 *
 *----------------------------------------------------------------*/

func RunReader(ctx context.Context, r io.Reader, q *ChunkQueue, bufSize int, transport string, metrics *Metrics) error {
	var buf = make([]byte, bufSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		var n, err = r.Read(buf)
		if n > 0 {
			q.Put(buf[:n])
			metrics.BytesReceived(transport, n)
		}

		if err == nil || errors.Is(err, errReadTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}

		if ctx.Err() != nil {
			// Closing the transport is how some callers unblock us.
			return nil
		}

		return err
	}
}

type RFDecoder struct {
	Deframer *HDLCDeframer
	Sink     RecordSink
	Logger   *log.Logger
	Metrics  *Metrics
	Source   string // e.g. the UDP address

	now func() time.Time
}

func NewRFDecoder(cfg RFConfig, sink RecordSink, logger *log.Logger, metrics *Metrics) *RFDecoder {
	return &RFDecoder{
		Deframer: NewHDLCDeframer(cfg.MinFrameLen, cfg.MaxFrameLen, cfg.CheckFCS),
		Sink:     sink,
		Logger:   logger,
		Metrics:  metrics,
		Source:   cfg.Listen,
		now:      time.Now,
	}
}

// Run is the decoder goroutine.  It returns when ctx is done.
func (d *RFDecoder) Run(ctx context.Context, q *ChunkQueue) {
	for {
		var chunk, err = q.Get(ctx)
		if err != nil {
			return
		}

		d.Feed(chunk)
	}
}

// Feed appends one chunk and processes every frame it completes.
func (d *RFDecoder) Feed(chunk []byte) {
	d.Deframer.Write(chunk)

	for {
		var frame, err = d.Deframer.NextFrame()
		if n := d.Deframer.TakeSkipped(); n > 0 {
			d.Metrics.BitsSkipped(n)
			d.Logger.Debug("bits skipped before flag", "bits", n)
		}

		if errors.Is(err, ErrNoFrame) {
			return
		}

		if err != nil {
			d.dropped(err)
			continue
		}

		var decoded, derr = DecodeAX25(frame)
		if derr != nil {
			d.dropped(derr)
			continue
		}

		d.Metrics.FrameDecoded()
		d.Logger.Info("Decoded Frame: " + decoded.String())
		if d.Logger.GetLevel() <= log.DebugLevel {
			d.Logger.Debug("frame bytes\n" + hexDump(frame))
		}

		if d.Sink != nil {
			d.Sink.Emit(FrameRecord(decoded, frame, d.Source, d.now()))
		}
	}
}

// Exactly one log line per thing thrown away.
func (d *RFDecoder) dropped(err error) {
	var de *DecodeError
	if !errors.As(err, &de) {
		d.Logger.Error("frame decoder", "err", err)
		return
	}

	d.Metrics.FrameDropped(de.Kind)
	d.Logger.Warn("frame discarded", "reason", de.Kind.String(), "detail", de.Detail, "len", len(de.Raw), "raw", de.RawHex())

	if d.Sink != nil {
		d.Sink.Emit(DropRecord(de, d.Source, d.now()))
	}
}

type MessageDecoder struct {
	Sink    RecordSink
	Logger  *log.Logger
	Metrics *Metrics

	// Bytes of a message that has not completely arrived.
	partial []byte

	now func() time.Time
}

func NewMessageDecoder(sink RecordSink, logger *log.Logger, metrics *Metrics) *MessageDecoder {
	return &MessageDecoder{
		Sink:    sink,
		Logger:  logger,
		Metrics: metrics,
		now:     time.Now,
	}
}

func (d *MessageDecoder) Run(ctx context.Context, q *ChunkQueue) {
	for {
		var chunk, err = q.Get(ctx)
		if err != nil {
			return
		}

		d.Feed(chunk)
	}
}

/*------------------------------------------------------------------
 *
 * Name:        Feed
 *
 * Purpose:     Cut the byte stream into MSG_SIZE messages.
 *
 * Description:	There is no delimiter on the bus, only the fixed
 *		length.  A message that fails to decode is logged and
 *		skipped as a whole, so we stay aligned with the sender.
 *
 *----------------------------------------------------------------*/

func (d *MessageDecoder) Feed(chunk []byte) {
	d.partial = append(d.partial, chunk...)

	for len(d.partial) >= MSG_SIZE {
		var raw = append([]byte(nil), d.partial[:MSG_SIZE]...)
		d.partial = d.partial[MSG_SIZE:]

		var m, err = Deserialize(raw)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				d.Metrics.FrameDropped(de.Kind)
				d.Logger.Warn("message discarded", "reason", de.Kind.String(), "detail", de.Detail, "raw", de.RawHex())
				if d.Sink != nil {
					d.Sink.Emit(DropRecord(de, SourcePort, d.now()))
				}
			}
			continue
		}

		m.Source = SourcePort
		m.Time = d.now()

		d.Metrics.MessageReceived(m.Cmd)
		d.Logger.Info("Message Parsed", "cmd", m.Cmd, "sender", m.Sender, "recipient", m.Recipient, "priority", m.Priority, "body", m.Fields().String())

		if d.Sink != nil {
			d.Sink.Emit(MessageRecord(m))
		}
	}

	if len(d.partial) == 0 {
		d.partial = nil
	}
}

// Pending is how many bytes of an incomplete message are held.
func (d *MessageDecoder) Pending() int {
	return len(d.partial)
}
