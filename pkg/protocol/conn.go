package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const frameRequest = "GET_IMAGE\n"

var (
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
)

// Conn frames the controller protocol over a single TCP stream. Exactly one
// goroutine may read (state lines and frame payloads share the stream, and a
// frame reply always directly follows its request); writes are serialized
// internally because commands and frame requests come from different
// goroutines.
type Conn struct {
	raw           net.Conn
	r             *bufio.Reader
	partial       []byte
	writeMu       sync.Mutex
	maxFrameBytes int
	frameTimeout  time.Duration
}

func NewConn(raw net.Conn, maxFrameBytes int, frameTimeout time.Duration) *Conn {
	if maxFrameBytes <= 0 {
		maxFrameBytes = 8 << 20
	}
	if frameTimeout <= 0 {
		frameTimeout = 5 * time.Second
	}
	return &Conn{
		raw:           raw,
		r:             bufio.NewReader(raw),
		maxFrameBytes: maxFrameBytes,
		frameTimeout:  frameTimeout,
	}
}

// ReadLine returns the next newline-terminated line without the terminator.
// Callers set the read deadline via SetReadDeadline and treat timeouts as
// retryable.
func (c *Conn) ReadLine() ([]byte, error) {
	chunk, err := c.r.ReadBytes('\n')
	if err != nil {
		// a deadline can expire with the line half-arrived; keep the
		// bytes so the retry returns the whole line, not its tail
		c.partial = append(c.partial, chunk...)
		return nil, err
	}

	line := chunk
	if len(c.partial) > 0 {
		line = append(c.partial, chunk...)
		c.partial = nil
	}

	// trim trailing \r\n
	end := len(line) - 1
	if end > 0 && line[end-1] == '\r' {
		end--
	}
	return line[:end], nil
}

// RequestFrame asks the game for a screen dump and reads it back: a 4-byte
// big-endian length prefix followed by raw PNG/JPEG bytes. Must be called
// from the goroutine that owns reads.
func (c *Conn) RequestFrame() ([]byte, error) {
	c.writeMu.Lock()
	_, err := c.raw.Write([]byte(frameRequest))
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send frame request: %w", err)
	}

	if err := c.raw.SetReadDeadline(time.Now().Add(c.frameTimeout)); err != nil {
		return nil, err
	}

	var prefix [4]byte
	if _, err := io.ReadFull(c.r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 {
		return nil, nil
	}
	if int(size) > c.maxFrameBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, c.maxFrameBytes)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	return payload, nil
}

func (c *Conn) WriteCommand(cmd Command) error {
	if cmd.Empty() {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.raw.Write([]byte(cmd.Encode() + "\n")); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

func (c *Conn) Close() error {
	return c.raw.Close()
}

// IsTimeout reports whether err is a retryable read deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
