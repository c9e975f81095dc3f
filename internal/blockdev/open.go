package blockdev

import "os"

// OpenSource opens path for reading and classifies it.
func OpenSource(path string) (Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return probeTarget(f)
}

// OpenDestination opens path for writing. Existing files and device nodes
// are opened in place, without truncation, because device nodes cannot be
// created; only when that fails is a fresh file created.
func OpenDestination(path string) (Target, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return nil, err
	}
	return probeTarget(f)
}
