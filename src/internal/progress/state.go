// Package progress tracks the progress of copies: CopyState for status lines reported by workers,
// and a terminal progress bar for interactive commands.
package progress

import (
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/dustin/go-humanize"
)

// CopyState tracks the bytes done by one copy and its throughput between the last two updates.
type CopyState struct {
	total int64
	done  int64
	last  time.Time
	rate  float64
	now   func() time.Time
}

// NewCopyState returns the state of a copy of total bytes.  now is the clock, time.Now if nil.
func NewCopyState(total int64, now func() time.Time) *CopyState {
	if now == nil {
		now = time.Now
	}
	return &CopyState{total: total, last: now(), now: now}
}

// Update records that done bytes have been copied so far, and recomputes the rate from the bytes
// and time since the previous update.
func (s *CopyState) Update(done int64) {
	t := s.now()
	if dt := t.Sub(s.last).Seconds(); dt > 0 {
		s.rate = float64(done-s.done) / dt
	}
	s.done, s.last = done, t
}

// Add is Update(Done()+n).
func (s *CopyState) Add(n int64) {
	s.Update(s.done + n)
}

func (s *CopyState) Total() int64 { return s.total }

func (s *CopyState) Done() int64 { return s.done }

func (s *CopyState) Remaining() int64 { return s.total - s.done }

// Rate is the instantaneous rate in bytes per second.
func (s *CopyState) Rate() float64 { return s.rate }

// Fraction is the completed fraction, 1 for an empty copy.
func (s *CopyState) Fraction() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.done) / float64(s.total)
}

// Status is the human readable status line of a positioned copy of src into dest at destOffset.
func (s *CopyState) Status(src, dest string, destOffset int64) string {
	return fmt.Sprintf("Copying %d of %d (%0.1f %% at %s/s): %s to %s at pos %d",
		s.done, s.total, 100*s.Fraction(), units.BytesSize(s.rate), src, dest, destOffset)
}

// Throughput formats a summary of n bytes moved in d.
func Throughput(n int64, d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		secs = 0.1
	}
	return fmt.Sprintf("%s in %s (%s/s)", humanize.IBytes(uint64(n)), d.Round(time.Second), humanize.IBytes(uint64(float64(n)/secs)))
}
