package blockdev

import (
	"fmt"
	"log/slog"
)

// LockGuard scopes exclusive ownership of a destination block device.
// Acquire is attempted at most once per guard; Release unlocks only a
// previously acquired lock and may be called any number of times.
type LockGuard struct {
	dev  BlockDevice
	held bool
}

// NewLockGuard creates a guard over dev without acquiring anything.
func NewLockGuard(dev BlockDevice) *LockGuard {
	return &LockGuard{dev: dev}
}

// Acquire dismounts the device's filesystem and takes an exclusive lock.
// Both must succeed; the guard holds the lock only when Acquire returns nil.
func (g *LockGuard) Acquire() error {
	if g.held {
		return nil
	}
	if err := g.dev.Dismount(); err != nil {
		return fmt.Errorf("dismount %s: %w", g.dev.Name(), err)
	}
	if err := g.dev.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", g.dev.Name(), err)
	}
	g.held = true
	return nil
}

// Release unlocks the device if the lock is held. No-op otherwise, so it
// is safe on every exit path, including setup failures before Acquire.
func (g *LockGuard) Release() {
	if !g.held {
		return
	}
	g.held = false
	if err := g.dev.Unlock(); err != nil {
		slog.Warn("unlock failed", "device", g.dev.Name(), "error", err)
	}
}

// Held reports whether the guard currently holds the lock.
func (g *LockGuard) Held() bool { return g.held }
