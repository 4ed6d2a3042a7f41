package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/jackc/pgx/v5"
)

// Insert durably appends a scored reading to the realtime tier. Rollups are
// driven solely by the maintenance scheduler, never from here.
func (s *Storage) Insert(ctx context.Context, r types.ScoredReading) error {
	args := pgx.NamedArgs{
		"device_id":   r.DeviceID,
		"time":        r.Timestamp.UTC(),
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"co2":         r.CO2,
		"pm25":        r.PM25,
		"noise":       r.Noise,
		"light":       r.Light,
		"score":       r.Scores.Overall,
		"area":        r.Area,
		"area_type":   string(r.AreaType),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO readings (device_id, time, temperature, humidity, co2, pm25, noise, light, score, area, area_type)
		VALUES (@device_id, @time, @temperature, @humidity, @co2, @pm25, @noise, @light, @score, @area, @area_type)
	`, args)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, err.Error())
	}

	return nil
}

// Query returns records for one device in [start, end], ascending by time.
// The tier is selected by the age of start: up to a day old reads the
// realtime tier, up to thirty days the hourly tier, anything older the daily
// tier. A window that straddles a tier boundary is served from that single
// tier only.
func (s *Storage) Query(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error) {
	age := time.Since(start)

	switch {
	case age <= 24*time.Hour:
		return s.queryRealtime(ctx, deviceID, start, end)
	case age <= 30*24*time.Hour:
		return s.queryAggregates(ctx, "hourly_aggregates", true, deviceID, start, end)
	default:
		return s.queryAggregates(ctx, "daily_aggregates", false, deviceID, start, end)
	}
}

func (s *Storage) queryRealtime(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT device_id, time, temperature, humidity, co2, pm25, noise, light, score
		FROM readings
		WHERE device_id = @device_id AND time BETWEEN @start AND @end
		ORDER BY time ASC
	`, pgx.NamedArgs{"device_id": deviceID, "start": start.UTC(), "end": end.UTC()})
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0)

	var r types.Record
	_, err = pgx.ForEachRow(rows, []any{&r.DeviceID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.CO2, &r.PM25, &r.Noise, &r.Light, &r.Score}, func() error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return records, nil
		}
		return nil, err
	}

	return records, nil
}

func (s *Storage) queryAggregates(ctx context.Context, table string, hourly bool, deviceID string, start, end time.Time) ([]types.Record, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT device_id, bucket_start, temperature, humidity, co2, pm25, noise, light, score, max_temperature, min_temperature, sample_count
		FROM %s
		WHERE device_id = @device_id AND bucket_start BETWEEN @start AND @end
		ORDER BY bucket_start ASC
	`, table), pgx.NamedArgs{"device_id": deviceID, "start": start.UTC(), "end": end.UTC()})
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0)

	var r types.Record
	_, err = pgx.ForEachRow(rows, []any{&r.DeviceID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.CO2, &r.PM25, &r.Noise, &r.Light, &r.Score, &r.MaxTemperature, &r.MinTemperature, &r.SampleCount}, func() error {
		r.Aggregated = true
		r.Hourly = hourly
		records = append(records, r)
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return records, nil
		}
		return nil, err
	}

	return records, nil
}
