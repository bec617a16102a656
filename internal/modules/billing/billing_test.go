package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/pkg/apperr"
)

func TestAmountDue(t *testing.T) {
	cases := []struct {
		hours float64
		price float64
		want  int64
	}{
		{0, 25, 0},
		{1, 25, 25},
		{1.0001, 25, 26},
		{0.01, 25, 1},
		{2.5, 10, 25},
		{3, 0, 0},
		{-1, 25, 0},
		{1.0 / 3.0 * 3.0, 30, 30},
		{0.1 + 0.2, 10, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AmountDue(tc.hours, tc.price), "hours=%v price=%v", tc.hours, tc.price)
	}
}

func TestAmountDueIsMonotonic(t *testing.T) {
	for _, price := range []float64{0, 1, 7.5, 25, 99.99} {
		prev := int64(0)
		for s := 0; s <= 4*3600; s += 7 {
			got := AmountFor(time.Duration(s)*time.Second, price)
			require.GreaterOrEqual(t, got, prev, "price=%v seconds=%d", price, s)
			prev = got
		}
	}
}

func TestElapsed(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	d, err := Elapsed(start, start.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	d, err = Elapsed(start, start)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = Elapsed(start, start.Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00:00", Clock(0))
	assert.Equal(t, "00:01:05", Clock(65*time.Second))
	assert.Equal(t, "26:00:01", Clock(26*time.Hour+time.Second))
	assert.Equal(t, "00:00:00", Clock(-time.Minute))
}

func TestProject(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	q, err := Project(start, start.Add(time.Hour+time.Second), 25)
	require.NoError(t, err)
	assert.Equal(t, int64(3601), q.ElapsedSeconds)
	assert.Equal(t, "01:00:01", q.Elapsed)
	assert.Equal(t, int64(26), q.AmountDue)

	_, err = Project(start, start.Add(-time.Hour), 25)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}
