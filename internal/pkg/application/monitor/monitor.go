package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/alarms"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/registry"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/scoring"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/pkg/types"
)

const (
	implicitLocation   = "unknown"
	implicitDeviceType = "sensor"
)

var ErrNoReadings = errors.New("no readings recorded for device")

type ReadingStore interface {
	Insert(ctx context.Context, r types.ScoredReading) error
	Query(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error)
}

// Service ties the ingestion path together: score, register, window, alarm
// check and durable insert, in that order.
type Service struct {
	registry *registry.Registry
	store    ReadingStore
	alarms   alarms.AlarmService
}

func New(r *registry.Registry, store ReadingStore, a alarms.AlarmService) *Service {
	return &Service{
		registry: r,
		store:    store,
		alarms:   a,
	}
}

// Ingest scores and records a single reading. Readings from devices that were
// never registered are accepted, the device is registered on the spot with
// placeholder metadata and the default config. Alarm evaluation failures are
// logged but do not fail the ingest, a failed durable insert does.
func (svc *Service) Ingest(ctx context.Context, reading types.Reading) error {
	log := logging.GetLoggerFromContext(ctx)

	scored := scoring.Score(reading, scoring.TimeSlotAt(reading.Timestamp))

	device, err := svc.registry.Get(reading.DeviceID)
	if err != nil {
		if !errors.Is(err, registry.ErrDeviceNotFound) {
			return err
		}

		svc.registry.Register(reading.DeviceID, implicitLocation, implicitDeviceType)
		log.Info().Str("device_id", reading.DeviceID).Msg("implicitly registered previously unknown device")

		device, _ = svc.registry.Get(reading.DeviceID)
	}

	svc.registry.Heartbeat(reading.DeviceID)
	svc.registry.RecordReading(reading.DeviceID, scored)

	err = svc.alarms.HandleReading(ctx, scored.Reading, device.Config)
	if err != nil {
		log.Error().Err(err).Str("device_id", reading.DeviceID).Msg("alarm evaluation failed")
	}

	err = svc.store.Insert(ctx, scored)
	if err != nil {
		return fmt.Errorf("failed to store reading from %s: %w", reading.DeviceID, err)
	}

	return nil
}

// Heartbeat forwards a standalone liveness signal from a device.
func (svc *Service) Heartbeat(ctx context.Context, deviceID string) error {
	if !svc.registry.Heartbeat(deviceID) {
		return registry.ErrDeviceNotFound
	}

	return nil
}

// History reads a device's records from the tiered store.
func (svc *Service) History(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("query window ends before it starts")
	}

	return svc.store.Query(ctx, deviceID, start, end)
}
