//go:build windows

package blockdev

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	fsctlLockVolume     = 0x90018
	fsctlUnlockVolume   = 0x9001c
	fsctlDismountVolume = 0x90020

	ioctlDiskGetDriveGeometryEx = 0x700a0
)

// diskGeometryEx mirrors DISK_GEOMETRY_EX up to the fields we need.
type diskGeometryEx struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
	DiskSize          int64
	Data              [1]byte
}

// probeTarget classifies an open handle as a raw disk or a plain stream.
// The geometry query doubles as device detection: only disk devices
// answer it.
func probeTarget(f *os.File) (Target, error) {
	var geo diskGeometryEx
	var ret uint32
	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetDriveGeometryEx,
		nil, 0,
		(*byte)(unsafe.Pointer(&geo)), uint32(unsafe.Sizeof(geo)),
		&ret, nil,
	)
	if err != nil {
		return &fileTarget{f: f}, nil
	}
	if geo.BytesPerSector == 0 {
		f.Close()
		return nil, fmt.Errorf("query geometry of %s: zero sector size", f.Name())
	}
	return &deviceTarget{fileTarget: fileTarget{f: f}, sectorSize: int64(geo.BytesPerSector)}, nil
}

// deviceTarget is a raw disk endpoint.
type deviceTarget struct {
	fileTarget
	sectorSize int64
}

func (t *deviceTarget) SectorSize() int64 { return t.sectorSize }

// EndOfMedium reports the error reads receive past the last addressable
// sector of a raw volume.
func (t *deviceTarget) EndOfMedium(err error) bool {
	return errors.Is(err, windows.ERROR_SECTOR_NOT_FOUND)
}

func (t *deviceTarget) Dismount() error { return t.fsctl(fsctlDismountVolume) }

func (t *deviceTarget) Lock() error { return t.fsctl(fsctlLockVolume) }

func (t *deviceTarget) Unlock() error { return t.fsctl(fsctlUnlockVolume) }

func (t *deviceTarget) fsctl(code uint32) error {
	var ret uint32
	return windows.DeviceIoControl(windows.Handle(t.f.Fd()), code, nil, 0, nil, 0, &ret, nil)
}
