// ABOUTME: Recorder appends grid change events to a CBOR tape; Reader streams them back
// ABOUTME: Replay re-applies a tape to a grid manager, optionally at recorded speed

package tape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/internal/log"
)

// ErrBadTape marks malformed tape content.
var ErrBadTape = errors.New("malformed tape")

// Recorder writes one tape. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *cbor.Encoder
	header Header
	count  int
	closed bool
}

// Create truncates path and starts a tape for a new session.
func Create(path, table string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create tape: %w", err)
	}
	r, err := NewRecorder(f, table)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewRecorder writes a tape header to w and returns a recorder for it.
func NewRecorder(w io.Writer, table string) (*Recorder, error) {
	r := &Recorder{
		enc: newEncoder(w),
		header: Header{
			Version:   Version,
			SessionID: uuid.New().String(),
			Started:   time.Now().UTC(),
			Table:     table,
		},
	}
	if err := r.enc.Encode(r.header); err != nil {
		return nil, fmt.Errorf("write tape header: %w", err)
	}
	return r, nil
}

// Header returns the tape header.
func (r *Recorder) Header() Header {
	return r.header
}

// Record appends one event.
func (r *Recorder) Record(ev grid.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return os.ErrClosed
	}
	if err := r.enc.Encode(toRecord(ev)); err != nil {
		return fmt.Errorf("write tape record #%d: %w", ev.Seq, err)
	}
	r.count++
	return nil
}

// Count returns how many events were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Follow records every event m emits from now on. stop waits for the
// events already emitted to be written.
func (r *Recorder) Follow(ctx context.Context, m *grid.Manager) (stop func()) {
	return m.SubscribeFunc(ctx, func(ev grid.ChangeEvent) {
		if err := r.Record(ev); err != nil {
			log.Warn("tape: %v", err)
		}
	})
}

// Close finishes the tape. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Reader streams events from a tape.
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
	header Header
}

// Open opens a tape file and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tape: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the tape header from src.
func NewReader(src io.Reader) (*Reader, error) {
	r := &Reader{dec: newDecoder(src)}
	if err := r.dec.Decode(&r.header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrBadTape, err)
	}
	if r.header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadTape, r.header.Version)
	}
	return r, nil
}

// Header returns the tape header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next event, or io.EOF at the end of the tape.
func (r *Reader) Next() (grid.ChangeEvent, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return grid.ChangeEvent{}, io.EOF
		}
		return grid.ChangeEvent{}, fmt.Errorf("%w: %v", ErrBadTape, err)
	}
	return rec.event()
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Replay applies every remaining event to m. With speed > 0 the recorded
// gaps between events are reproduced, divided by speed; otherwise events
// are applied back to back. It returns the number of events applied.
func Replay(ctx context.Context, r *Reader, m *grid.Manager, speed float64) (int, error) {
	var (
		n    int
		last time.Time
	)
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		if speed > 0 && !last.IsZero() && ev.Time.After(last) {
			gap := time.Duration(float64(ev.Time.Sub(last)) / speed)
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(gap):
			}
		}
		last = ev.Time

		if err := apply(m, ev); err != nil {
			return n, err
		}
		n++
	}
}

func apply(m *grid.Manager, ev grid.ChangeEvent) error {
	switch ev.Scope {
	case grid.ScopeCell:
		return m.SetCell(ev.Row, ev.Column, ev.Value)
	case grid.ScopeRow:
		return m.SetRow(ev.Row, ev.Value)
	case grid.ScopeColumn:
		return m.SetColumn(ev.Column, ev.Rows)
	case grid.ScopeFull:
		m.Load(*ev.Grid)
		return nil
	default:
		return fmt.Errorf("%w: scope %d", ErrBadTape, ev.Scope)
	}
}
