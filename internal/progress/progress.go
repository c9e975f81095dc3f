// Package progress implements the periodic throughput report emitted
// during a copy and the final status line printed at session end.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/sryze/wdd/internal/ui"
)

// ReportInterval is the minimum time between two progress lines.
const ReportInterval = time.Second

// clearLine erases the current terminal line so the next report can
// redraw in place.
const clearLine = "\r\x1b[2K"

// Reporter decides once per copied block whether enough time has passed
// to emit a progress line. The first call only records a baseline; each
// emission resets it. Lines redraw in place on a TTY and append otherwise.
type Reporter struct {
	w       io.Writer
	now     func() time.Time
	inPlace bool

	start     time.Time
	lastTime  time.Time
	lastBytes int64
	drew      bool
}

// NewReporter creates a Reporter writing to w. now may be nil, in which
// case the wall clock is used; tests inject a fake clock.
func NewReporter(w io.Writer, inPlace bool, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{w: w, now: now, inPlace: inPlace, start: now()}
}

// MaybeReport emits a progress line if at least ReportInterval has elapsed
// since the previous one. bytesOut is the session's running output total.
func (r *Reporter) MaybeReport(bytesOut int64) {
	now := r.now()
	if r.lastTime.IsZero() {
		r.lastTime = now
		return
	}
	sinceLast := now.Sub(r.lastTime)
	if sinceLast < ReportInterval {
		return
	}

	// At least a full interval separates reports, so the denominator is
	// never small here.
	line := statusLine(bytesOut, now.Sub(r.start), float64(bytesOut-r.lastBytes)/sinceLast.Seconds())
	if r.inPlace {
		fmt.Fprint(r.w, clearLine+line)
		r.drew = true
	} else {
		fmt.Fprintln(r.w, line)
	}

	r.lastTime = now
	r.lastBytes = bytesOut
}

// Clear erases an in-place progress line so the final status or an error
// diagnostic starts on a clean line. Safe to call when nothing was drawn.
func (r *Reporter) Clear() {
	if !r.drew {
		return
	}
	fmt.Fprint(r.w, clearLine)
	r.drew = false
}

// PrintStatus writes the final status line: total bytes, elapsed time, and
// the average rate over the whole session. For sessions shorter than one
// reporting interval the raw byte count stands in for the rate, so a tiny
// denominator cannot produce an absurd figure.
func PrintStatus(w io.Writer, bytesOut int64, elapsed time.Duration) {
	bytesPerSec := float64(bytesOut)
	if elapsed >= ReportInterval {
		bytesPerSec = float64(bytesOut) / elapsed.Seconds()
	}
	fmt.Fprintln(w, statusLine(bytesOut, elapsed, bytesPerSec))
}

func statusLine(bytesOut int64, elapsed time.Duration, bytesPerSec float64) string {
	return fmt.Sprintf("%d bytes (%s) copied, %.1f s, %s",
		bytesOut, ui.FormatBytes(bytesOut), elapsed.Seconds(), ui.FormatRate(bytesPerSec))
}
