//go:build darwin

package blockdev

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DKIOCGETBLOCKSIZE, _IOR('d', 24, uint32).
const dkiocGetBlockSize = 0x40046418

// probeTarget classifies an open file as a raw disk or a plain stream.
// Raw disks on Darwin appear as both block (/dev/diskN) and character
// (/dev/rdiskN) special files.
func probeTarget(f *os.File) (Target, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}

	mode := st.Mode & unix.S_IFMT
	if mode != unix.S_IFBLK && mode != unix.S_IFCHR {
		return &fileTarget{f: f}, nil
	}

	sector, err := unix.IoctlGetInt(int(f.Fd()), dkiocGetBlockSize)
	if err != nil {
		if mode == unix.S_IFCHR && errors.Is(err, unix.ENOTTY) {
			// Character device without disk geometry (tty, /dev/null):
			// treat as a plain stream.
			return &fileTarget{f: f}, nil
		}
		f.Close()
		return nil, fmt.Errorf("query sector size of %s: %w", f.Name(), err)
	}
	return &deviceTarget{fileTarget: fileTarget{f: f}, sectorSize: int64(sector)}, nil
}

// deviceTarget is a raw disk endpoint.
type deviceTarget struct {
	fileTarget
	sectorSize int64
}

func (t *deviceTarget) SectorSize() int64 { return t.sectorSize }

func (t *deviceTarget) EndOfMedium(err error) bool {
	return errors.Is(err, unix.ENXIO)
}

// Dismount unmounts every live mount of the device.
func (t *deviceTarget) Dismount() error {
	mounts, err := mountPoints(t.f.Name())
	if err != nil {
		return err
	}
	for _, mp := range mounts {
		if err := unix.Unmount(mp, 0); err != nil {
			return fmt.Errorf("unmount %s: %w", mp, err)
		}
	}
	return nil
}

func (t *deviceTarget) Lock() error {
	return unix.Flock(int(t.f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func (t *deviceTarget) Unlock() error {
	return unix.Flock(int(t.f.Fd()), unix.LOCK_UN)
}

// mountPoints returns the mount points whose source is the given device.
func mountPoints(device string) ([]string, error) {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil {
		return nil, err
	}
	entries := make([]unix.Statfs_t, n)
	n, err = unix.Getfsstat(entries, unix.MNT_NOWAIT)
	if err != nil {
		return nil, err
	}

	var mps []string
	for _, e := range entries[:n] {
		if unix.ByteSliceToString(e.Mntfromname[:]) == device {
			mps = append(mps, unix.ByteSliceToString(e.Mntonname[:]))
		}
	}
	return mps, nil
}
