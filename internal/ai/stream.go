package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrStreamRead is returned when a streamed response fails mid-read and the
// one-shot full-body recovery read also fails.
var ErrStreamRead = errors.New("stream read failure")

const doneSentinel = "[DONE]"

// FragmentFunc receives each extracted text fragment in arrival order.
type FragmentFunc func(fragment string)

// StreamDecoder incrementally decodes a line-framed byte stream (plain lines
// or SSE "data:" frames) into text fragments. It holds one partial-line
// buffer between reads; a decoder serves exactly one stream.
type StreamDecoder struct {
	logger     *slog.Logger
	onFragment FragmentFunc

	buf  strings.Builder
	full strings.Builder
}

// NewStreamDecoder creates a decoder. onFragment may be nil; when set it is
// invoked for every non-empty fragment, and panics inside it are recovered
// and logged rather than aborting the stream.
func NewStreamDecoder(logger *slog.Logger, onFragment FragmentFunc) *StreamDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamDecoder{logger: logger, onFragment: onFragment}
}

// Feed consumes a chunk. Complete lines are processed immediately; the
// trailing partial line waits for the next chunk or Flush.
func (d *StreamDecoder) Feed(chunk []byte) {
	d.buf.Write(chunk)
	data := d.buf.String()

	for {
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		d.processLine(data[:idx])
		data = data[idx+1:]
	}

	d.buf.Reset()
	d.buf.WriteString(data)
}

// Flush processes any residual partial line. Call once at end of stream.
func (d *StreamDecoder) Flush() {
	if d.buf.Len() == 0 {
		return
	}
	line := d.buf.String()
	d.buf.Reset()
	d.processLine(line)
}

// Text returns the accumulated full text so far.
func (d *StreamDecoder) Text() string {
	return d.full.String()
}

func (d *StreamDecoder) processLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if len(line) >= 5 && strings.EqualFold(line[:5], "data:") {
		line = strings.TrimSpace(line[5:])
	}
	if line == doneSentinel || line == "DONE" {
		return
	}

	fragment := line
	var parsed any
	if err := json.Unmarshal([]byte(line), &parsed); err == nil {
		fragment = ExtractText(parsed)
	}
	if fragment == "" {
		return
	}

	d.full.WriteString(fragment)
	d.emit(fragment)
}

func (d *StreamDecoder) emit(fragment string) {
	if d.onFragment == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("fragment callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	d.onFragment(fragment)
}

// Consume drives the decoder from r until EOF and returns the accumulated
// text. On a mid-stream read error it makes one best-effort attempt to read
// the remaining body in full; if that also fails the error wraps
// ErrStreamRead.
func (d *StreamDecoder) Consume(r io.Reader) (string, error) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		d.logger.Warn("stream read interrupted, attempting full-body recovery", "error", err)
		rest, readErr := io.ReadAll(r)
		if readErr != nil {
			return "", fmt.Errorf("%w: %v", ErrStreamRead, errors.Join(err, readErr))
		}
		d.Feed(rest)
		break
	}

	d.Flush()
	return d.Text(), nil
}
