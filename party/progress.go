package party

import (
	"errors"
	"fmt"
)

// Progress reports how far a session has advanced, normalized to [0,1].
type Progress interface {
	Get(nowMillis int64) float64
}

// ErrLastRound is returned when advancing past the final round.
var ErrLastRound = errors.New("already at last round")

// RoundProgress counts rounds. It is immutable; Advance returns its successor.
type RoundProgress struct {
	// Duration is the total number of rounds.
	Duration int
	// Current is the zero-based current round.
	Current int
	// EndTime is the wall-clock deadline in unix millis.
	EndTime int64
}

// NewRoundProgress validates and returns a round counter.
func NewRoundProgress(duration, current int, endTime int64) (RoundProgress, error) {
	if duration <= 0 {
		return RoundProgress{}, fmt.Errorf("round duration must be positive, got %d", duration)
	}
	if current < 0 || current > duration {
		return RoundProgress{}, fmt.Errorf("current round %d outside [0,%d]", current, duration)
	}
	return RoundProgress{Duration: duration, Current: current, EndTime: endTime}, nil
}

// Get returns Current/Duration. The clock is not consulted.
func (p RoundProgress) Get(int64) float64 {
	if p.Duration <= 0 {
		return 1.0
	}
	return min(float64(p.Current)/float64(p.Duration), 1.0)
}

// CurrentRound returns the zero-based current round.
func (p RoundProgress) CurrentRound() int {
	return p.Current
}

// TotalRounds returns the number of rounds in the session.
func (p RoundProgress) TotalRounds() int {
	return p.Duration
}

// RoundsRemaining returns TotalRounds - CurrentRound.
func (p RoundProgress) RoundsRemaining() int {
	return p.Duration - p.Current
}

// Advance returns the progress of the next round.
func (p RoundProgress) Advance() (RoundProgress, error) {
	if p.Current >= p.Duration {
		return p, fmt.Errorf("%w: round %d of %d", ErrLastRound, p.Current, p.Duration)
	}
	p.Current++
	return p, nil
}

// TimeProgress measures elapsed wall-clock time against a deadline.
type TimeProgress struct {
	// Start is the session start in unix millis.
	Start int64
	// Duration is the session length in milliseconds.
	Duration int64
}

// Get returns the elapsed fraction of the session, clamped to [0,1].
func (p TimeProgress) Get(nowMillis int64) float64 {
	if p.Duration <= 0 {
		return 1.0
	}
	t := float64(nowMillis-p.Start) / float64(p.Duration)
	return max(0.0, min(t, 1.0))
}
