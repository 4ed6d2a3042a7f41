package maintenance

import (
	"context"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/alarms"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/registry"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Store is the slice of the tiered store that the scheduler drives.
type Store interface {
	AggregateHourly(ctx context.Context) error
	AggregateDaily(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

type Scheduler interface {
	Start() error
	Stop()
}

type schedulerImpl struct {
	cron     *cron.Cron
	registry *registry.Registry
	store    Store
	alarms   alarms.AlarmService
	log      zerolog.Logger
}

// New creates a scheduler that sweeps device liveness every minute, rolls
// readings up into hourly aggregates on the hour and, at midnight UTC, rolls
// hourly aggregates up into daily ones and deletes rows past retention. Job
// failures are logged and the schedule keeps running.
func New(r *registry.Registry, store Store, alarmSvc alarms.AlarmService, log zerolog.Logger) Scheduler {
	return &schedulerImpl{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		registry: r,
		store:    store,
		alarms:   alarmSvc,
		log:      log,
	}
}

func (s *schedulerImpl) Start() error {
	jobs := []struct {
		spec string
		run  func(context.Context)
	}{
		{"* * * * *", s.sweepLiveness},
		{"0 * * * *", s.runHourly},
		{"0 0 * * *", s.runDaily},
	}

	for _, j := range jobs {
		run := j.run
		_, err := s.cron.AddFunc(j.spec, func() {
			ctx := logging.NewContextWithLogger(context.Background(), s.log)
			run(ctx)
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()

	return nil
}

func (s *schedulerImpl) Stop() {
	<-s.cron.Stop().Done()
}

func (s *schedulerImpl) sweepLiveness(ctx context.Context) {
	for _, deviceID := range s.registry.SweepLiveness() {
		s.log.Warn().Str("device_id", deviceID).Msg("device has not been observed within its liveness threshold")

		err := s.alarms.Add(ctx, types.Alarm{
			DeviceID:    deviceID,
			AlarmType:   alarms.AlarmDeviceNotObserved,
			Description: "device missed three consecutive heartbeat intervals",
			Severity:    types.AlarmSeverityWarning,
		})
		if err != nil {
			s.log.Error().Err(err).Str("device_id", deviceID).Msg("could not store liveness alarm")
		}
	}
}

func (s *schedulerImpl) runHourly(ctx context.Context) {
	err := s.store.AggregateHourly(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("hourly rollup failed")
	}
}

func (s *schedulerImpl) runDaily(ctx context.Context) {
	err := s.store.AggregateDaily(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("daily rollup failed")
	}

	err = s.store.Cleanup(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("retention cleanup failed")
	}
}
