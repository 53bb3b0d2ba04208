package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Received chunk queue.
 *
 * Description: The transport reader (UDP socket or serial port) must
 *		never wait for decoding, so it just appends what it read
 *		to this queue and goes back to reading.  The decoder
 *		goroutine takes chunks off the other end, in order.
 *
 *		Put never blocks; the queue is unbounded.  Get waits
 *		until there is something to take or the context is done.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"sync"
)

type ChunkQueue struct {
	mu     sync.Mutex
	chunks [][]byte
	bytes  int

	// Notify the decoder when the queue is not empty.
	wakeUp chan struct{}
}

func NewChunkQueue() *ChunkQueue {
	return &ChunkQueue{
		wakeUp: make(chan struct{}, 1),
	}
}

// Put appends a copy of chunk.  Empty chunks are ignored.
func (q *ChunkQueue) Put(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	var c = append([]byte(nil), chunk...)

	q.mu.Lock()
	q.chunks = append(q.chunks, c)
	q.bytes += len(c)
	q.mu.Unlock()

	select {
	case q.wakeUp <- struct{}{}:
	default:
		// Already signalled.
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Get
 *
 * Purpose:     Remove the oldest chunk, waiting for one if necessary.
 *
 * Returns:	The chunk, or ctx.Err() once the context is done.
 *		Anything still queued at that point is abandoned.
 *
 *--------------------------------------------------------------------*/

func (q *ChunkQueue) Get(ctx context.Context) ([]byte, error) {
	for {
		if c, ok := q.TryGet(); ok {
			return c, nil
		}

		select {
		case <-q.wakeUp:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryGet removes the oldest chunk if there is one.
func (q *ChunkQueue) TryGet() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil, false
	}

	var c = q.chunks[0]
	q.chunks[0] = nil
	q.chunks = q.chunks[1:]
	q.bytes -= len(c)

	if len(q.chunks) == 0 {
		q.chunks = nil
	}

	return c, true
}

// Len is the number of queued chunks.
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.chunks)
}

// Bytes is the total size of the queued chunks.
func (q *ChunkQueue) Bytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.bytes
}
