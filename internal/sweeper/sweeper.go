// Package sweeper runs the daily reservation lifecycle sweep.
package sweeper

import (
	"context"
	"time"

	"villamar/internal/domain"
	"villamar/internal/metrics"

	"github.com/rs/zerolog"
)

// Sweeper moves confirmed reservations whose stay has ended to the
// completed status once per local day.
type Sweeper struct {
	service  domain.ReservationService
	hour     int
	location *time.Location
	logger   *zerolog.Logger
}

func New(service domain.ReservationService, hour int, location *time.Location, logger *zerolog.Logger) *Sweeper {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if location == nil {
		location = time.Local
	}
	return &Sweeper{
		service:  service,
		hour:     hour,
		location: location,
		logger:   logger,
	}
}

// Start blocks until ctx is done. The first sweep fires at the next
// occurrence of the configured hour, then every 24h.
func (s *Sweeper) Start(ctx context.Context) {
	wait := s.timeUntilNextHour()
	s.logger.Info().Dur("first_sweep_in", wait).Int("hour", s.hour).Msg("sweeper: scheduled")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce performs a single sweep for the current local day. Reservations
// already completed are untouched, so repeated runs are harmless.
func (s *Sweeper) RunOnce(ctx context.Context) {
	today := time.Now().In(s.location)

	transitioned, err := s.service.SweepCompleted(ctx, today)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: sweep failed")
		return
	}

	metrics.AddSweepTransitions(transitioned)
	s.logger.Info().Int64("transitioned", transitioned).
		Str("today", today.Format("2006-01-02")).
		Msg("sweeper: run complete")
}

func (s *Sweeper) timeUntilNextHour() time.Duration {
	now := time.Now().In(s.location)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.location)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
