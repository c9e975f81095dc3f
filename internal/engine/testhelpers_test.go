package engine_test

import (
	"bytes"
	"errors"
	"io"

	"github.com/sryze/wdd/internal/blockdev"
)

// fakeTarget is an in-memory blockdev.Target. Reads come from the seeded
// contents, writes accumulate in out, and every resource-affecting call is
// counted so tests can assert exactly-once cleanup.
type fakeTarget struct {
	name string
	data *bytes.Reader
	out  bytes.Buffer

	closes int

	// readErr, when set, is returned in place of io.EOF once the seeded
	// contents are exhausted.
	readErr error

	// failOnWrite fails the Nth write call (1-based) with writeErr.
	writeCalls  int
	failOnWrite int
	writeErr    error

	// shortWrites makes every write consume only half its input and
	// report the short count without an error.
	shortWrites bool
}

func newFakeTarget(name string, contents []byte) *fakeTarget {
	return &fakeTarget{name: name, data: bytes.NewReader(contents)}
}

func (t *fakeTarget) Read(p []byte) (int, error) {
	n, err := t.data.Read(p)
	if errors.Is(err, io.EOF) && t.readErr != nil {
		return n, t.readErr
	}
	return n, err
}

func (t *fakeTarget) Write(p []byte) (int, error) {
	t.writeCalls++
	if t.failOnWrite > 0 && t.writeCalls == t.failOnWrite {
		return 0, t.writeErr
	}
	if t.shortWrites {
		return t.out.Write(p[:len(p)/2])
	}
	return t.out.Write(p)
}

func (t *fakeTarget) Close() error {
	t.closes++
	return nil
}

func (t *fakeTarget) Name() string { return t.name }

func (t *fakeTarget) EndOfMedium(error) bool { return false }

// fakeDevice extends fakeTarget with sector geometry and lock bookkeeping.
type fakeDevice struct {
	fakeTarget
	sector int64

	dismountErr error
	lockErr     error
	pastEndErr  error

	dismounts int
	locks     int
	unlocks   int
}

func newFakeDevice(name string, contents []byte, sector int64) *fakeDevice {
	return &fakeDevice{
		fakeTarget: fakeTarget{name: name, data: bytes.NewReader(contents)},
		sector:     sector,
	}
}

func (d *fakeDevice) SectorSize() int64 { return d.sector }

func (d *fakeDevice) Dismount() error {
	d.dismounts++
	return d.dismountErr
}

func (d *fakeDevice) Lock() error {
	if d.lockErr != nil {
		return d.lockErr
	}
	d.locks++
	return nil
}

func (d *fakeDevice) Unlock() error {
	d.unlocks++
	return nil
}

// EndOfMedium mimics the platform past-end errno classification.
func (d *fakeDevice) EndOfMedium(err error) bool {
	return d.pastEndErr != nil && errors.Is(err, d.pastEndErr)
}

var _ blockdev.Target = (*fakeTarget)(nil)
var _ blockdev.BlockDevice = (*fakeDevice)(nil)
