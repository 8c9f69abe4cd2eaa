package session

import (
	"fmt"
	"math"
	"time"
)

// TimerState is the lifecycle state of a single countdown.
type TimerState string

const (
	TimerCreated TimerState = "created"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerDone    TimerState = "done"
)

// Timer is one countdown within a session.
//
// The time-tracking schema has evolved and already-created sessions may
// carry either representation, so both sets of fields are modeled:
//
//   - absolute: started_at / due_at / paused_at timestamps, with due_at
//     computed server-side as startedAt + remaining when (re)started.
//   - accumulated: elapsed_sec across previous run intervals plus a
//     remaining_sec snapshot taken when pausing.
//
// Remaining-time math never operates on these fields directly; callers go
// through Track() which resolves them into one canonical variant.
type Timer struct {
	ID string `json:"id"`
	// ClientID is the client-generated idempotency key for creations that
	// have not been acknowledged yet; a retried create with the same key
	// must not duplicate the timer.
	ClientID string `json:"client_id,omitempty"`

	StepIndex   int    `json:"step_index"`
	BulletIndex *int   `json:"bullet_index,omitempty"`
	Label       string `json:"label"`
	DurationSec int    `json:"duration_sec"`

	State TimerState `json:"state"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`

	ElapsedSec   *float64 `json:"elapsed_sec,omitempty"`
	RemainingSec *float64 `json:"remaining_sec,omitempty"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the timer carries a deletion marker.
func (t *Timer) Deleted() bool {
	return t.DeletedAt != nil
}

// Track is the normalized time-tracking representation, resolved once from
// whichever schema the wire payload carried.
type Track interface {
	isTrack()
}

// AbsoluteTrack tracks a timer by absolute timestamps.
type AbsoluteTrack struct {
	StartedAt time.Time
	DueAt     time.Time
	// ElapsedBefore is total running time accumulated before the current
	// run interval. Only meaningful when DueAt is zero.
	ElapsedBefore float64
}

// AccumulatedTrack tracks a timer by accumulated seconds.
type AccumulatedTrack struct {
	ElapsedSec   float64
	RemainingSec float64
	HasRemaining bool
}

func (AbsoluteTrack) isTrack()    {}
func (AccumulatedTrack) isTrack() {}

// Track resolves the wire fields into the canonical variant. Absolute
// timestamps win when present since they are what the server computes for
// running timers; the accumulated fields cover paused legacy sessions.
func (t *Timer) Track() Track {
	if t.StartedAt != nil {
		track := AbsoluteTrack{StartedAt: *t.StartedAt}
		if t.DueAt != nil {
			track.DueAt = *t.DueAt
		}
		if t.ElapsedSec != nil {
			track.ElapsedBefore = *t.ElapsedSec
		}
		return track
	}

	track := AccumulatedTrack{}
	if t.ElapsedSec != nil {
		track.ElapsedSec = *t.ElapsedSec
	}
	if t.RemainingSec != nil {
		track.RemainingSec = *t.RemainingSec
		track.HasRemaining = true
	}
	return track
}

// Remaining derives the timer's remaining whole seconds at the given
// instant. Pure: repeated calls at the same instant return the same value,
// and the result is always >= 0.
func (t *Timer) Remaining(now time.Time) int {
	switch t.State {
	case TimerCreated:
		return t.DurationSec
	case TimerDone:
		return 0
	case TimerPaused:
		switch track := t.Track().(type) {
		case AccumulatedTrack:
			if track.HasRemaining {
				return clampSec(track.RemainingSec)
			}
			return clampSec(float64(t.DurationSec) - track.ElapsedSec)
		case AbsoluteTrack:
			// Paused but still carrying absolute fields: prefer the
			// explicit snapshot, else derive from the paused interval.
			if t.RemainingSec != nil {
				return clampSec(*t.RemainingSec)
			}
			end := now
			if t.PausedAt != nil {
				end = *t.PausedAt
			}
			elapsed := track.ElapsedBefore + end.Sub(track.StartedAt).Seconds()
			return clampSec(float64(t.DurationSec) - elapsed)
		}
		return clampSec(float64(t.DurationSec))
	case TimerRunning:
		switch track := t.Track().(type) {
		case AbsoluteTrack:
			if !track.DueAt.IsZero() {
				left := math.Ceil(track.DueAt.Sub(now).Seconds())
				return clampSec(left)
			}
			elapsed := track.ElapsedBefore + now.Sub(track.StartedAt).Seconds()
			return clampSec(math.Round(float64(t.DurationSec) - elapsed))
		case AccumulatedTrack:
			// Running without a reference timestamp is a degenerate
			// payload; fall back to the accumulated snapshot.
			if track.HasRemaining {
				return clampSec(track.RemainingSec)
			}
			return clampSec(float64(t.DurationSec) - track.ElapsedSec)
		}
	}
	return 0
}

// Expired reports whether a running timer has reached zero.
func (t *Timer) Expired(now time.Time) bool {
	return t.State == TimerRunning && t.Remaining(now) <= 0
}

// Start transitions created|paused -> running, establishing a new reference
// point. Accumulated elapsed time from previous runs is carried over so
// paused intervals never count against the timer.
func (t *Timer) Start(now time.Time) error {
	if t.State != TimerCreated && t.State != TimerPaused {
		return fmt.Errorf("cannot start timer in state %s", t.State)
	}
	remaining := float64(t.Remaining(now))
	elapsed := float64(t.DurationSec) - remaining

	t.State = TimerRunning
	t.StartedAt = timePtr(now)
	t.DueAt = timePtr(now.Add(time.Duration(remaining * float64(time.Second))))
	t.PausedAt = nil
	t.ElapsedSec = floatPtr(elapsed)
	t.RemainingSec = nil
	return nil
}

// Pause transitions running -> paused, snapshotting remaining time and
// folding the just-elapsed interval into elapsed_sec.
func (t *Timer) Pause(now time.Time) error {
	if t.State != TimerRunning {
		return fmt.Errorf("cannot pause timer in state %s", t.State)
	}
	remaining := float64(t.Remaining(now))

	t.State = TimerPaused
	t.PausedAt = timePtr(now)
	t.RemainingSec = floatPtr(remaining)
	t.ElapsedSec = floatPtr(float64(t.DurationSec) - remaining)
	t.StartedAt = nil
	t.DueAt = nil
	return nil
}

// MarkDone transitions any state -> done. Idempotent.
func (t *Timer) MarkDone() {
	if t.State == TimerDone {
		return
	}
	t.State = TimerDone
	t.StartedAt = nil
	t.DueAt = nil
	t.PausedAt = nil
	t.RemainingSec = floatPtr(0)
}

// MarkDeleted stamps the deletion marker. Valid from any state.
func (t *Timer) MarkDeleted(now time.Time) {
	if t.DeletedAt == nil {
		t.DeletedAt = timePtr(now)
	}
}

func clampSec(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(v)
}

func timePtr(t time.Time) *time.Time { return &t }
func floatPtr(f float64) *float64    { return &f }

// IntPtr is a convenience for optional bullet indexes in timer creation.
func IntPtr(i int) *int { return &i }
