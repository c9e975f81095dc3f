package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sryze/wdd/internal/engine"
)

type fakeCopySession struct {
	res     engine.Result
	started bool
	closes  int
}

func (s *fakeCopySession) Run(context.Context) engine.Result { return s.res }
func (s *fakeCopySession) Started() bool                     { return s.started }
func (s *fakeCopySession) Close() error                      { s.closes++; return nil }

var _ copySession = (*fakeCopySession)(nil)

func TestRunSessionSuccess(t *testing.T) {
	sess := &fakeCopySession{
		res:     engine.Result{BytesIn: 4096, BytesOut: 4096, Blocks: 1, Elapsed: 2 * time.Second},
		started: true,
	}
	var stdout, stderr bytes.Buffer

	err := runSession(context.Background(), sess, nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "4096 bytes (4.0 KiB) copied, 2.0 s, 2.00 KB/s\n", stdout.String())
	assert.Empty(t, stderr.String())
	assert.Equal(t, 1, sess.closes)
}

func TestRunSessionWriteFailurePrintsPartialStatus(t *testing.T) {
	sess := &fakeCopySession{
		res: engine.Result{
			BytesIn:  4096,
			BytesOut: 2048,
			Blocks:   1,
			Elapsed:  1500 * time.Millisecond,
			Err:      errors.New("write disk.img: no space left on device"),
		},
		started: true,
	}
	var stdout, stderr bytes.Buffer

	err := runSession(context.Background(), sess, nil, &stdout, &stderr)
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)

	assert.Contains(t, stderr.String(), "wdd: write disk.img")
	// Exactly one status line, reflecting what moved before the failure.
	assert.Equal(t, 1, strings.Count(stdout.String(), "copied"))
	assert.Contains(t, stdout.String(), "2048 bytes (2.0 KiB) copied, 1.5 s,")
	assert.Equal(t, 1, sess.closes)
}

func TestRunSessionFailureBeforeTransferPrintsNoStatus(t *testing.T) {
	sess := &fakeCopySession{
		res:     engine.Result{Err: errors.New("lock volume: access denied")},
		started: false,
	}
	var stdout, stderr bytes.Buffer

	err := runSession(context.Background(), sess, nil, &stdout, &stderr)
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)

	assert.Contains(t, stderr.String(), "wdd: lock volume")
	assert.Empty(t, stdout.String())
	assert.Equal(t, 1, sess.closes)
}

func TestCopyMainOpenFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	var stdout, stderr bytes.Buffer

	err := copyMain(context.Background(), Options{
		If:    missing,
		Of:    filepath.Join(t.TempDir(), "out"),
		Count: -1,
	}, &stdout, &stderr)

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)
	assert.Contains(t, stderr.String(), "for reading")
	assert.Empty(t, stdout.String())
}
