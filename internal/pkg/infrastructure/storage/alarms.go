package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/jackc/pgx/v5"
)

func (s *Storage) AddAlarm(ctx context.Context, alarm types.Alarm) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alarms (alarm_id, device_id, alarm_type, description, severity, observed_at, closed)
		VALUES (@alarm_id, @device_id, @alarm_type, @description, @severity, @observed_at, @closed)
	`, pgx.NamedArgs{
		"alarm_id":    alarm.ID,
		"device_id":   alarm.DeviceID,
		"alarm_type":  alarm.AlarmType,
		"description": alarm.Description,
		"severity":    alarm.Severity,
		"observed_at": alarm.ObservedAt,
		"closed":      alarm.Closed,
	})
	if err != nil {
		return fmt.Errorf("could not store alarm: %w", err)
	}

	return nil
}

// QueryAlarms returns alarms newest first. An empty deviceID matches all
// devices, and onlyOpen restricts the result to alarms not yet closed.
func (s *Storage) QueryAlarms(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alarm_id, device_id, alarm_type, description, severity, observed_at, closed
		FROM alarms
		WHERE (@device_id = '' OR device_id = @device_id)
		  AND (NOT @only_open OR NOT closed)
		ORDER BY observed_at DESC
	`, pgx.NamedArgs{"device_id": deviceID, "only_open": onlyOpen})
	if err != nil {
		return nil, err
	}

	alarms := make([]types.Alarm, 0)

	var a types.Alarm
	_, err = pgx.ForEachRow(rows, []any{&a.ID, &a.DeviceID, &a.AlarmType, &a.Description, &a.Severity, &a.ObservedAt, &a.Closed}, func() error {
		alarms = append(alarms, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return alarms, nil
}

func (s *Storage) CloseAlarm(ctx context.Context, alarmID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alarms SET closed = TRUE WHERE alarm_id = @alarm_id
	`, pgx.NamedArgs{"alarm_id": alarmID})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return errors.New("no such alarm: " + alarmID)
	}

	return nil
}
