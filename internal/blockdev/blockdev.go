// Package blockdev abstracts the two kinds of endpoint a copy can touch:
// plain byte streams (regular files, pipes) and raw block devices with a
// queryable sector geometry. The transfer loop sees only the Target
// interface, so it carries no platform branching.
package blockdev

import (
	"fmt"
	"io"
)

// DefaultBufferSize is the transfer buffer size used when no block size
// was requested.
const DefaultBufferSize = 4096

// Target is one open endpoint of a copy.
type Target interface {
	io.Reader
	io.Writer
	io.Closer

	// Name returns the path the target was opened from.
	Name() string

	// EndOfMedium reports whether err is the error the target's backing
	// store returns when reading past its last addressable byte. Raw
	// devices report a platform errno; plain streams never report it.
	EndOfMedium(err error) bool
}

// BlockDevice is a Target backed by a raw block device.
type BlockDevice interface {
	Target

	// SectorSize returns the device's logical sector size in bytes.
	SectorSize() int64

	// Dismount detaches any filesystem mounted from the device so it
	// cannot interfere with raw sector writes.
	Dismount() error

	// Lock takes an exclusive lock on the device.
	Lock() error

	// Unlock drops a previously taken lock.
	Unlock() error
}

// BufferPlan is the transfer buffer sizing decision for a destination.
type BufferPlan struct {
	Size          int64
	SectorAligned bool
}

// PlanBuffer sizes the transfer buffer for dst. Device destinations get a
// sector-multiple buffer: a request below the sector size is raised to one
// sector, anything larger is rounded down to a sector multiple. Plain
// streams use the request as-is, or DefaultBufferSize when unset.
func PlanBuffer(dst Target, requested int64) (BufferPlan, error) {
	dev, ok := dst.(BlockDevice)
	if !ok {
		if requested > 0 {
			return BufferPlan{Size: requested}, nil
		}
		return BufferPlan{Size: DefaultBufferSize}, nil
	}

	sector := dev.SectorSize()
	if sector <= 0 {
		return BufferPlan{}, fmt.Errorf("%s: invalid sector size %d", dst.Name(), sector)
	}
	if requested < sector {
		return BufferPlan{Size: sector, SectorAligned: true}, nil
	}
	size := requested / sector * sector
	if size == 0 {
		return BufferPlan{}, fmt.Errorf("%s: block size %d cannot be aligned to %d-byte sectors",
			dst.Name(), requested, sector)
	}
	return BufferPlan{Size: size, SectorAligned: true}, nil
}
