//go:build linux

package blockdev

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// probeTarget classifies an open file as a raw block device or a plain
// stream. The sector size is queried here, so a geometry failure surfaces
// before any lock or buffer allocation.
func probeTarget(f *os.File) (Target, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFBLK {
		return &fileTarget{f: f}, nil
	}

	sector, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("query sector size of %s: %w", f.Name(), err)
	}
	return &deviceTarget{fileTarget: fileTarget{f: f}, sectorSize: int64(sector)}, nil
}

// deviceTarget is a raw block device endpoint.
type deviceTarget struct {
	fileTarget
	sectorSize int64
}

func (t *deviceTarget) SectorSize() int64 { return t.sectorSize }

// EndOfMedium reports the errno the kernel returns for reads addressed
// past the device's last sector.
func (t *deviceTarget) EndOfMedium(err error) bool {
	return errors.Is(err, unix.ENXIO)
}

// Dismount unmounts every live mount of the device so the filesystem
// cannot interfere with raw sector writes.
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
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return nil, err
	}
	var mps []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == device {
			mps = append(mps, fields[1])
		}
	}
	return mps, nil
}
