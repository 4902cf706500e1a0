package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"villamar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubService struct {
	domain.ReservationService
	calls int
	count int64
	err   error
	today time.Time
}

func (s *stubService) SweepCompleted(ctx context.Context, today time.Time) (int64, error) {
	s.calls++
	s.today = today
	return s.count, s.err
}

func TestRunOnce(t *testing.T) {
	svc := &stubService{count: 3}
	logger := zerolog.Nop()
	s := New(svc, 0, time.UTC, &logger)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, time.UTC, svc.today.Location())
}

func TestRunOnceSweepError(t *testing.T) {
	svc := &stubService{err: errors.New("db locked")}
	logger := zerolog.Nop()
	s := New(svc, 0, time.UTC, &logger)

	// Errors are logged, not fatal; the next scheduled run still happens.
	s.RunOnce(context.Background())
	assert.Equal(t, 1, svc.calls)
}

func TestNewClampsHour(t *testing.T) {
	logger := zerolog.Nop()

	for _, hour := range []int{-1, 24, 99} {
		s := New(&stubService{}, hour, time.UTC, &logger)
		assert.Equal(t, 0, s.hour, "hour %d should clamp to 0", hour)
	}

	s := New(&stubService{}, 5, nil, &logger)
	assert.Equal(t, 5, s.hour)
	assert.NotNil(t, s.location)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	logger := zerolog.Nop()
	s := New(&stubService{}, 23, time.UTC, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestTimeUntilNextHour(t *testing.T) {
	logger := zerolog.Nop()
	s := New(&stubService{}, 0, time.UTC, &logger)

	wait := s.timeUntilNextHour()
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 24*time.Hour)
}
