// Package engine implements the bounded block-copy loop at the core of
// wdd: one session per invocation that owns both endpoints, the transfer
// buffer, and the destination volume lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sryze/wdd/internal/blockdev"
	"github.com/sryze/wdd/internal/progress"
)

// Config describes a copy operation.
type Config struct {
	If        string
	Of        string
	BlockSize int64              // requested block size; <= 0 selects the default
	Count     int64              // maximum blocks to copy; < 0 means unbounded
	Reporter  *progress.Reporter // nil disables progress reporting
	Now       func() time.Time   // nil selects the wall clock
}

// Result is the outcome of a copy operation. The counters are valid even
// when Err is set: they reflect what moved before the failure.
type Result struct {
	BytesIn  int64
	BytesOut int64
	Blocks   int64
	Elapsed  time.Duration
	Err      error
}

// Session owns every resource of one copy. It is single-threaded: the
// counters are plain fields that only the transfer loop mutates.
type Session struct {
	src   blockdev.Target
	dst   blockdev.Target
	guard *blockdev.LockGuard
	buf   []byte

	count    int64
	reporter *progress.Reporter
	now      func() time.Time

	started   bool
	startTime time.Time
	bytesIn   int64
	bytesOut  int64
	blocks    int64

	closed bool
}

// Open acquires every resource for the copy described by cfg, in order:
// source, destination, buffer geometry, volume lock (device destinations
// only), buffer. On failure it releases whatever was already acquired.
func Open(cfg Config) (*Session, error) {
	src, err := blockdev.OpenSource(cfg.If)
	if err != nil {
		return nil, fmt.Errorf("open %s for reading: %w", cfg.If, err)
	}
	dst, err := blockdev.OpenDestination(cfg.Of)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("open %s for writing: %w", cfg.Of, err)
	}
	sess, err := NewSession(src, dst, cfg)
	if err != nil {
		dst.Close()
		src.Close()
		return nil, err
	}
	return sess, nil
}

// NewSession plans the buffer, locks the destination device if there is
// one, and allocates the buffer over two already-open targets. The session
// takes ownership of both targets; the caller must Close it exactly once.
func NewSession(src, dst blockdev.Target, cfg Config) (*Session, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	requested := cfg.BlockSize
	if requested <= 0 {
		requested = blockdev.DefaultBufferSize
	}
	plan, err := blockdev.PlanBuffer(dst, requested)
	if err != nil {
		return nil, err
	}

	var guard *blockdev.LockGuard
	if dev, ok := dst.(blockdev.BlockDevice); ok {
		guard = blockdev.NewLockGuard(dev)
		if err := guard.Acquire(); err != nil {
			return nil, err
		}
	}

	slog.Debug("session ready",
		"if", src.Name(),
		"of", dst.Name(),
		"buffer", plan.Size,
		"sector_aligned", plan.SectorAligned,
	)

	return &Session{
		src:       src,
		dst:       dst,
		guard:     guard,
		buf:       make([]byte, plan.Size),
		count:     cfg.Count,
		reporter:  cfg.Reporter,
		now:       now,
		startTime: now(),
	}, nil
}

// BufferSize returns the fixed transfer buffer size chosen for the session.
func (s *Session) BufferSize() int64 { return int64(len(s.buf)) }

// Started reports whether the transfer loop ran at least once. It gates
// the partial status line on the error path.
func (s *Session) Started() bool { return s.started }

// Run executes the transfer loop until clean end of data, the block
// budget, or a fatal error. A zero-byte read and the device past-end read
// error both terminate the loop successfully; everything else is fatal.
// There are no retries.
func (s *Session) Run(ctx context.Context) Result {
	s.started = true
	var fatal error

	for {
		if s.count >= 0 && s.blocks >= s.count {
			break
		}
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}

		n, rerr := s.src.Read(s.buf)
		if n > 0 {
			s.bytesIn += int64(n)

			// A short write is recorded as-is, not treated as an error.
			// Only an outright write failure is fatal.
			w, werr := s.dst.Write(s.buf[:n])
			s.bytesOut += int64(w)
			if werr != nil {
				fatal = fmt.Errorf("write %s: %w", s.dst.Name(), werr)
				break
			}
			s.blocks++

			if s.reporter != nil {
				s.reporter.MaybeReport(s.bytesOut)
			}
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !s.src.EndOfMedium(rerr) {
				fatal = fmt.Errorf("read %s: %w", s.src.Name(), rerr)
			}
			break
		}
		if n == 0 {
			break
		}
	}

	return Result{
		BytesIn:  s.bytesIn,
		BytesOut: s.bytesOut,
		Blocks:   s.blocks,
		Elapsed:  s.now().Sub(s.startTime),
		Err:      fatal,
	}
}

// Close releases the session's resources in the reverse order they were
// acquired: buffer, volume lock, destination, source. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.buf = nil
	if s.guard != nil {
		s.guard.Release()
	}

	var errs []error
	if err := s.dst.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", s.dst.Name(), err))
	}
	if err := s.src.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", s.src.Name(), err))
	}
	return errors.Join(errs...)
}
