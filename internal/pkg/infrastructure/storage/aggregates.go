package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/jackc/pgx/v5"
)

// hourBucket returns the start of the hour that t falls in, in UTC.
func hourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// dayBucket returns the UTC midnight of the calendar day that t falls in.
// Daily buckets are UTC days throughout the store.
func dayBucket(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AggregateHourly rolls the most recently completed hour of realtime rows up
// into one hourly aggregate per device. The primary key on (device, bucket)
// makes repeated runs for the same bucket no-ops, so a scheduler retry can
// never duplicate a rollup.
func (s *Storage) AggregateHourly(ctx context.Context) error {
	bucketEnd := hourBucket(time.Now())
	bucketStart := bucketEnd.Add(-time.Hour)

	return s.aggregateHourlyBucket(ctx, bucketStart, bucketEnd)
}

func (s *Storage) aggregateHourlyBucket(ctx context.Context, bucketStart, bucketEnd time.Time) error {
	log := logging.GetLoggerFromContext(ctx)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO hourly_aggregates (device_id, bucket_start, temperature, humidity, co2, pm25, noise, light, score, max_temperature, min_temperature, sample_count)
		SELECT device_id, @bucket_start,
			AVG(temperature), AVG(humidity), AVG(co2), AVG(pm25), AVG(noise), AVG(light), AVG(score),
			MAX(temperature), MIN(temperature), COUNT(*)
		FROM readings
		WHERE time >= @bucket_start AND time < @bucket_end
		GROUP BY device_id
		ON CONFLICT (device_id, bucket_start) DO NOTHING
	`, pgx.NamedArgs{"bucket_start": bucketStart, "bucket_end": bucketEnd})
	if err != nil {
		return fmt.Errorf("hourly aggregation failed: %w", err)
	}

	log.Debug().Time("bucket", bucketStart).Int64("rows", tag.RowsAffected()).Msg("hourly aggregation done")

	return nil
}

// AggregateDaily rolls the most recently completed UTC day of hourly
// aggregates up into one daily aggregate per device. Factor values are means
// of the hourly means, temperature extrema are the extrema of the hourly
// extrema and sample counts are summed.
func (s *Storage) AggregateDaily(ctx context.Context) error {
	bucketEnd := dayBucket(time.Now())
	bucketStart := bucketEnd.Add(-24 * time.Hour)

	return s.aggregateDailyBucket(ctx, bucketStart, bucketEnd)
}

func (s *Storage) aggregateDailyBucket(ctx context.Context, bucketStart, bucketEnd time.Time) error {
	log := logging.GetLoggerFromContext(ctx)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO daily_aggregates (device_id, bucket_start, temperature, humidity, co2, pm25, noise, light, score, max_temperature, min_temperature, sample_count)
		SELECT device_id, @bucket_start,
			AVG(temperature), AVG(humidity), AVG(co2), AVG(pm25), AVG(noise), AVG(light), AVG(score),
			MAX(max_temperature), MIN(min_temperature), SUM(sample_count)
		FROM hourly_aggregates
		WHERE bucket_start >= @bucket_start AND bucket_start < @bucket_end
		GROUP BY device_id
		ON CONFLICT (device_id, bucket_start) DO NOTHING
	`, pgx.NamedArgs{"bucket_start": bucketStart, "bucket_end": bucketEnd})
	if err != nil {
		return fmt.Errorf("daily aggregation failed: %w", err)
	}

	log.Debug().Time("bucket", bucketStart).Int64("rows", tag.RowsAffected()).Msg("daily aggregation done")

	return nil
}

// Cleanup deletes rows that have aged out of their tier's retention window.
func (s *Storage) Cleanup(ctx context.Context) error {
	log := logging.GetLoggerFromContext(ctx)

	deletes := []struct {
		table     string
		column    string
		retention string
	}{
		{"readings", "time", realtimeRetention},
		{"hourly_aggregates", "bucket_start", hourlyRetention},
		{"daily_aggregates", "bucket_start", dailyRetention},
	}

	for _, d := range deletes {
		tag, err := s.pool.Exec(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE %s < CURRENT_TIMESTAMP - INTERVAL '%s'", d.table, d.column, d.retention,
		))
		if err != nil {
			return fmt.Errorf("cleanup of %s failed: %w", d.table, err)
		}

		log.Debug().Str("table", d.table).Int64("rows", tag.RowsAffected()).Msg("expired rows deleted")
	}

	return nil
}
