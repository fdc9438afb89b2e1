package party

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestNewRoundProgress(t *testing.T) {
	p, err := NewRoundProgress(100, 10, 5000)
	check.NoError(t, err)
	check.Equal(t, 100, p.TotalRounds())
	check.Equal(t, 10, p.CurrentRound())
	check.Equal(t, 90, p.RoundsRemaining())
	check.Equal(t, int64(5000), p.EndTime)

	_, err = NewRoundProgress(0, 0, 0)
	check.Error(t, err)
	_, err = NewRoundProgress(10, 11, 0)
	check.Error(t, err)
	_, err = NewRoundProgress(10, -1, 0)
	check.Error(t, err)
}

func TestRoundProgress_Get(t *testing.T) {
	tests := []struct {
		current  int
		expected float64
	}{
		{0, 0.0},
		{10, 0.1},
		{50, 0.5},
		{95, 0.95},
		{100, 1.0},
	}

	for _, tt := range tests {
		p := RoundProgress{Duration: 100, Current: tt.current}
		check.Equal(t, tt.expected, p.Get(0))
		// The clock does not matter
		check.Equal(t, tt.expected, p.Get(1_000_000))
	}

	check.Equal(t, 1.0, RoundProgress{}.Get(0))
}

func TestRoundProgress_Advance(t *testing.T) {
	p := RoundProgress{Duration: 2, Current: 0}

	next, err := p.Advance()
	check.NoError(t, err)
	check.Equal(t, 1, next.Current)
	// The receiver is unchanged
	check.Equal(t, 0, p.Current)

	next, err = next.Advance()
	check.NoError(t, err)
	check.Equal(t, 2, next.Current)

	_, err = next.Advance()
	check.True(t, errors.Is(err, ErrLastRound))
}

func TestTimeProgress_Get(t *testing.T) {
	p := TimeProgress{Start: 1000, Duration: 2000}

	check.Equal(t, 0.0, p.Get(500))
	check.Equal(t, 0.0, p.Get(1000))
	check.Equal(t, 0.5, p.Get(2000))
	check.Equal(t, 1.0, p.Get(3000))
	check.Equal(t, 1.0, p.Get(9000))

	check.Equal(t, 1.0, TimeProgress{}.Get(0))
}
