package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Write queued up messages to the device.
 *
 * Description:	The console serializes a message, puts it on the
 *		outgoing ChunkQueue, and goes merrily on its way,
 *		unconcerned about when it actually gets written.
 *
 *		This goroutine removes them from the queue, in order, and
 *		writes each one whole.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// RunWriter returns nil when ctx is done, or the first write error.
// Messages still queued at that point are abandoned.
func RunWriter(ctx context.Context, w io.Writer, q *ChunkQueue, logger *log.Logger) error {
	for {
		var msg, err = q.Get(ctx)
		if err != nil {
			return nil
		}

		for len(msg) > 0 {
			var n, werr = w.Write(msg)
			if n == 0 && werr == nil {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("device write: %w", werr)
			}
			msg = msg[n:]
		}

		if logger.GetLevel() <= log.DebugLevel {
			logger.Debug("message written", "queued", q.Len())
		}
	}
}
