package applet

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// Channel is the message link between an applet and its host process.
//
// Receive returns the next raw message, or [io.EOF] once the host has
// disconnected. Send delivers a raw reply. Implementations must allow
// Send to be called concurrently with Receive.
type Channel interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, msg []byte) error
}

// LineChannel is a [Channel] carrying one JSON message per line, typically
// over stdin and stdout.
type LineChannel struct {
	r *bufio.Reader
	w io.Writer

	startOnce sync.Once
	lines     chan lineResult
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex
}

type lineResult struct {
	line []byte
	err  error
}

// NewLineChannel creates a [LineChannel] reading from r and writing to w.
func NewLineChannel(r io.Reader, w io.Writer) *LineChannel {
	return &LineChannel{
		r:     bufio.NewReader(r),
		w:     w,
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
}

// Receive returns the next non-empty line without its terminator.
//
// The underlying reader is consumed by a background goroutine, so Receive
// can return early when ctx ends; the pending line is kept for the next
// call.
func (c *LineChannel) Receive(ctx context.Context) ([]byte, error) {
	c.startOnce.Do(func() { go c.readLoop() })

	select {
	case res, ok := <-c.lines:
		if !ok {
			return nil, io.EOF
		}
		return res.line, res.err
	case <-c.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *LineChannel) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 && !c.deliver(lineResult{line: line}) {
			return
		}
		if err != nil {
			if err != io.EOF {
				c.deliver(lineResult{err: err})
			}
			return
		}
	}
}

// deliver hands res to Receive, giving up once the channel is closed.
func (c *LineChannel) deliver(res lineResult) bool {
	select {
	case c.lines <- res:
		return true
	case <-c.done:
		return false
	}
}

// Close stops delivering lines; Receive returns io.EOF afterwards. The
// underlying reader is not closed, so a read already in progress ends only
// when it returns. Close is safe to call more than once.
func (c *LineChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Send writes msg followed by a newline.
func (c *LineChannel) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, bytes.TrimSpace(msg)...)
	buf = append(buf, '\n')
	_, err := c.w.Write(buf)
	return err
}
