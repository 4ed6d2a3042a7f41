package storage

import (
	"context"
	"testing"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/google/uuid"
	"github.com/matryer/is"
)

func TestHourBucket(t *testing.T) {
	is := is.New(t)

	ts := time.Date(2023, 4, 5, 13, 37, 21, 0, time.UTC)
	is.Equal(hourBucket(ts), time.Date(2023, 4, 5, 13, 0, 0, 0, time.UTC))
}

func TestDayBucketUsesUTCDays(t *testing.T) {
	is := is.New(t)

	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2023, 4, 6, 1, 15, 0, 0, loc) // 23:15 UTC on the 5th

	is.Equal(dayBucket(ts), time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC))
}

func TestInsertAndQueryRealtime(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		err := s.Insert(ctx, scored(deviceID, now.Add(time.Duration(-i)*time.Minute), 20.0+float64(i)))
		is.NoErr(err)
	}

	records, err := s.Query(ctx, deviceID, now.Add(-time.Hour), now)
	is.NoErr(err)

	is.Equal(len(records), 3)
	is.Equal(records[0].Temperature, 22.0) // oldest first
	is.Equal(records[2].Temperature, 20.0)
	is.True(!records[0].Aggregated)
}

func TestHourlyAggregation(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	bucket := hourBucket(time.Now()).Add(-3 * time.Hour)

	for i, temp := range []float64{18.0, 20.0, 22.0, 24.0} {
		err := s.Insert(ctx, scored(deviceID, bucket.Add(time.Duration(i*10)*time.Minute), temp))
		is.NoErr(err)
	}

	err := s.aggregateHourlyBucket(ctx, bucket, bucket.Add(time.Hour))
	is.NoErr(err)

	records, err := s.queryAggregates(ctx, "hourly_aggregates", true, deviceID, bucket, bucket)
	is.NoErr(err)

	is.Equal(len(records), 1)
	is.Equal(records[0].Temperature, 21.0)
	is.Equal(records[0].MaxTemperature, 24.0)
	is.Equal(records[0].MinTemperature, 18.0)
	is.Equal(records[0].SampleCount, int64(4))
	is.True(records[0].Aggregated)
	is.True(records[0].Hourly)
}

func TestHourlyAggregationIsIdempotent(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	bucket := hourBucket(time.Now()).Add(-3 * time.Hour)

	err := s.Insert(ctx, scored(deviceID, bucket.Add(5*time.Minute), 21.0))
	is.NoErr(err)

	is.NoErr(s.aggregateHourlyBucket(ctx, bucket, bucket.Add(time.Hour)))
	is.NoErr(s.aggregateHourlyBucket(ctx, bucket, bucket.Add(time.Hour)))

	records, err := s.queryAggregates(ctx, "hourly_aggregates", true, deviceID, bucket, bucket)
	is.NoErr(err)

	is.Equal(len(records), 1)
	is.Equal(records[0].SampleCount, int64(1))
}

func TestDailyAggregation(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	day := dayBucket(time.Now()).Add(-48 * time.Hour)

	// two hourly buckets with different means and extrema
	for i, temp := range []float64{10.0, 20.0} {
		bucket := day.Add(time.Duration(i) * time.Hour)

		is.NoErr(s.Insert(ctx, scored(deviceID, bucket.Add(5*time.Minute), temp-2)))
		is.NoErr(s.Insert(ctx, scored(deviceID, bucket.Add(15*time.Minute), temp+2)))
		is.NoErr(s.aggregateHourlyBucket(ctx, bucket, bucket.Add(time.Hour)))
	}

	err := s.aggregateDailyBucket(ctx, day, day.Add(24*time.Hour))
	is.NoErr(err)

	records, err := s.queryAggregates(ctx, "daily_aggregates", false, deviceID, day, day)
	is.NoErr(err)

	is.Equal(len(records), 1)
	is.Equal(records[0].Temperature, 15.0) // mean of the two hourly means
	is.Equal(records[0].MaxTemperature, 22.0)
	is.Equal(records[0].MinTemperature, 8.0)
	is.Equal(records[0].SampleCount, int64(4))
	is.True(!records[0].Hourly)
}

func TestAggregationIgnoresReadingsOutsideTheBucket(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	bucket := hourBucket(time.Now()).Add(-3 * time.Hour)

	is.NoErr(s.Insert(ctx, scored(deviceID, bucket.Add(30*time.Minute), 20.0)))
	is.NoErr(s.Insert(ctx, scored(deviceID, bucket.Add(90*time.Minute), 99.0)))

	is.NoErr(s.aggregateHourlyBucket(ctx, bucket, bucket.Add(time.Hour)))

	records, err := s.queryAggregates(ctx, "hourly_aggregates", true, deviceID, bucket, bucket)
	is.NoErr(err)

	is.Equal(len(records), 1)
	is.Equal(records[0].SampleCount, int64(1))
	is.Equal(records[0].Temperature, 20.0)
}

func TestCleanupDropsExpiredRealtimeRows(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	old := time.Now().UTC().Add(-25 * time.Hour)
	fresh := time.Now().UTC().Add(-10 * time.Minute)

	is.NoErr(s.Insert(ctx, scored(deviceID, old, 20.0)))
	is.NoErr(s.Insert(ctx, scored(deviceID, fresh, 21.0)))

	is.NoErr(s.Cleanup(ctx))

	records, err := s.queryRealtime(ctx, deviceID, old.Add(-time.Hour), time.Now())
	is.NoErr(err)

	is.Equal(len(records), 1)
	is.Equal(records[0].Temperature, 21.0)
}

func TestAlarmLifecycle(t *testing.T) {
	is, ctx, s := testSetup(t)
	deviceID := uuid.NewString()

	alarm := types.Alarm{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		AlarmType:   "co2_above_limit",
		Description: "co2 2200.0 above limit 1000.0",
		Severity:    types.AlarmSeveritySevere,
		ObservedAt:  time.Now().UTC(),
	}

	is.NoErr(s.AddAlarm(ctx, alarm))

	open, err := s.QueryAlarms(ctx, deviceID, true)
	is.NoErr(err)
	is.Equal(len(open), 1)
	is.Equal(open[0].AlarmType, "co2_above_limit")

	is.NoErr(s.CloseAlarm(ctx, alarm.ID))

	open, err = s.QueryAlarms(ctx, deviceID, true)
	is.NoErr(err)
	is.Equal(len(open), 0)

	all, err := s.QueryAlarms(ctx, deviceID, false)
	is.NoErr(err)
	is.Equal(len(all), 1)
	is.True(all[0].Closed)
}

func TestCloseUnknownAlarmFails(t *testing.T) {
	is, ctx, s := testSetup(t)

	err := s.CloseAlarm(ctx, uuid.NewString())
	is.True(err != nil)
}

func scored(deviceID string, ts time.Time, temp float64) types.ScoredReading {
	return types.ScoredReading{
		Reading: types.Reading{
			DeviceID:    deviceID,
			Timestamp:   ts,
			Temperature: temp,
			Humidity:    50,
			CO2:         600,
			PM25:        10,
			Noise:       45,
			Light:       300,
			Area:        "room-101",
			AreaType:    types.AreaLiving,
		},
		Scores: types.FactorScores{Overall: 90},
	}
}

func testSetup(t *testing.T) (*is.I, context.Context, *Storage) {
	is := is.New(t)
	ctx := context.Background()

	config := Config{
		host:     "localhost",
		user:     "postgres",
		password: "password",
		port:     "5432",
		dbname:   "postgres",
		sslmode:  "disable",
	}

	s, err := New(ctx, config)
	if err != nil {
		t.SkipNow()
	}

	err = s.Initialize(ctx)
	if err != nil {
		t.SkipNow()
	}

	return is, ctx, s
}
