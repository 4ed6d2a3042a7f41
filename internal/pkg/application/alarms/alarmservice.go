package alarms

import (
	"context"
	"fmt"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/google/uuid"
)

const (
	AlarmTemperatureBelowLimit = "temperature_below_limit"
	AlarmTemperatureAboveLimit = "temperature_above_limit"
	AlarmHumidityBelowLimit    = "humidity_below_limit"
	AlarmHumidityAboveLimit    = "humidity_above_limit"
	AlarmCO2AboveLimit         = "co2_above_limit"
	AlarmPM25AboveLimit        = "pm25_above_limit"
	AlarmDeviceNotObserved     = "device_not_observed"
)

// margins by which a limit must be exceeded before a warning is
// escalated to a severe alarm
const (
	severeTemperatureMargin = 4.0
	severeHumidityMargin    = 10.0
	severeCO2Margin         = 500.0
	severePM25Margin        = 40.0
)

type AlarmService interface {
	HandleReading(ctx context.Context, reading types.Reading, config types.DeviceConfig) error
	Add(ctx context.Context, alarm types.Alarm) error
	Get(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error)
	Close(ctx context.Context, alarmID string) error
}

type AlarmStorage interface {
	AddAlarm(ctx context.Context, alarm types.Alarm) error
	QueryAlarms(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error)
	CloseAlarm(ctx context.Context, alarmID string) error
}

type alarmSvc struct {
	storage AlarmStorage
}

func New(s AlarmStorage) AlarmService {
	return &alarmSvc{storage: s}
}

// HandleReading compares a reading against the device's alert thresholds and
// opens an alarm for each factor that is out of bounds. A factor with an
// alarm of the same type already open on the device is skipped, so a device
// that keeps reporting a breach produces a single alarm until it is closed.
func (svc *alarmSvc) HandleReading(ctx context.Context, reading types.Reading, config types.DeviceConfig) error {
	breaches := detectBreaches(reading, config)
	if len(breaches) == 0 {
		return nil
	}

	open, err := svc.storage.QueryAlarms(ctx, reading.DeviceID, true)
	if err != nil {
		return err
	}

	openTypes := map[string]bool{}
	for _, a := range open {
		openTypes[a.AlarmType] = true
	}

	log := logging.GetLoggerFromContext(ctx)

	for _, b := range breaches {
		if openTypes[b.AlarmType] {
			continue
		}

		b.ID = uuid.NewString()
		b.DeviceID = reading.DeviceID
		b.ObservedAt = reading.Timestamp

		err = svc.storage.AddAlarm(ctx, b)
		if err != nil {
			return err
		}

		log.Warn().Str("device_id", reading.DeviceID).Str("alarm_type", b.AlarmType).Int("severity", b.Severity).Msg(b.Description)
	}

	return nil
}

func (svc *alarmSvc) Add(ctx context.Context, alarm types.Alarm) error {
	if alarm.DeviceID == "" {
		return fmt.Errorf("no device id is set on alarm")
	}
	if alarm.ID == "" {
		alarm.ID = uuid.NewString()
	}
	if alarm.ObservedAt.IsZero() {
		alarm.ObservedAt = time.Now().UTC()
	}

	return svc.storage.AddAlarm(ctx, alarm)
}

func (svc *alarmSvc) Get(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error) {
	return svc.storage.QueryAlarms(ctx, deviceID, onlyOpen)
}

func (svc *alarmSvc) Close(ctx context.Context, alarmID string) error {
	return svc.storage.CloseAlarm(ctx, alarmID)
}

func detectBreaches(r types.Reading, cfg types.DeviceConfig) []types.Alarm {
	alarms := make([]types.Alarm, 0)

	add := func(alarmType, description string, severe bool) {
		severity := types.AlarmSeverityWarning
		if severe {
			severity = types.AlarmSeveritySevere
		}
		alarms = append(alarms, types.Alarm{
			AlarmType:   alarmType,
			Description: description,
			Severity:    severity,
		})
	}

	if r.Temperature < cfg.AlertTempMin {
		add(AlarmTemperatureBelowLimit,
			fmt.Sprintf("temperature %.1f below limit %.1f", r.Temperature, cfg.AlertTempMin),
			r.Temperature < cfg.AlertTempMin-severeTemperatureMargin)
	}
	if r.Temperature > cfg.AlertTempMax {
		add(AlarmTemperatureAboveLimit,
			fmt.Sprintf("temperature %.1f above limit %.1f", r.Temperature, cfg.AlertTempMax),
			r.Temperature > cfg.AlertTempMax+severeTemperatureMargin)
	}
	if r.Humidity < cfg.AlertHumidityMin {
		add(AlarmHumidityBelowLimit,
			fmt.Sprintf("humidity %.1f below limit %.1f", r.Humidity, cfg.AlertHumidityMin),
			r.Humidity < cfg.AlertHumidityMin-severeHumidityMargin)
	}
	if r.Humidity > cfg.AlertHumidityMax {
		add(AlarmHumidityAboveLimit,
			fmt.Sprintf("humidity %.1f above limit %.1f", r.Humidity, cfg.AlertHumidityMax),
			r.Humidity > cfg.AlertHumidityMax+severeHumidityMargin)
	}
	if r.CO2 > cfg.AlertCO2Max {
		add(AlarmCO2AboveLimit,
			fmt.Sprintf("co2 %.1f above limit %.1f", r.CO2, cfg.AlertCO2Max),
			r.CO2 > cfg.AlertCO2Max+severeCO2Margin)
	}
	if r.PM25 > cfg.AlertPM25Max {
		add(AlarmPM25AboveLimit,
			fmt.Sprintf("pm2.5 %.1f above limit %.1f", r.PM25, cfg.AlertPM25Max),
			r.PM25 > cfg.AlertPM25Max+severePM25Margin)
	}

	return alarms
}
