package blockdev

import "os"

// fileTarget adapts a plain *os.File to the Target interface.
type fileTarget struct {
	f *os.File
}

func (t *fileTarget) Read(p []byte) (int, error)  { return t.f.Read(p) }
func (t *fileTarget) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *fileTarget) Close() error                { return t.f.Close() }
func (t *fileTarget) Name() string                { return t.f.Name() }
func (t *fileTarget) EndOfMedium(error) bool      { return false }
