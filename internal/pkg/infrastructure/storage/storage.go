// Package storage persists readings at three resolutions: raw realtime rows,
// hourly aggregates and daily aggregates. Aggregation compacts each tier into
// the next and retention deletes expired rows.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoRows      = errors.New("no rows in result set")
	ErrStoreFailed = errors.New("could not store data")
)

const (
	realtimeRetention = "24 hours"
	hourlyRetention   = "30 days"
	dailyRetention    = "365 days"
)

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func NewConfig(host, user, password, port, dbname, sslmode string) Config {
	return Config{
		host:     host,
		user:     user,
		password: password,
		port:     port,
		dbname:   dbname,
		sslmode:  sslmode,
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func NewPool(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, config.ConnStr())
	if err != nil {
		return nil, err
	}

	err = p.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return p, nil
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, config Config) (*Storage, error) {
	pool, err := NewPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{pool: pool}, nil
}

func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Initialize(ctx context.Context) error {
	return s.createTables(ctx)
}

func (s *Storage) createTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS readings (
			device_id	TEXT NOT NULL,
			time		timestamp with time zone NOT NULL,
			temperature	NUMERIC NOT NULL,
			humidity	NUMERIC NOT NULL,
			co2			NUMERIC NOT NULL,
			pm25		NUMERIC NOT NULL,
			noise		NUMERIC NOT NULL,
			light		NUMERIC NOT NULL,
			score		NUMERIC NOT NULL,
			area		TEXT NOT NULL DEFAULT '',
			area_type	TEXT NOT NULL DEFAULT 'teaching',
			created_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS readings_device_time_idx ON readings (device_id, time);

		CREATE TABLE IF NOT EXISTS hourly_aggregates (
			device_id		TEXT NOT NULL,
			bucket_start	timestamp with time zone NOT NULL,
			temperature		NUMERIC NOT NULL,
			humidity		NUMERIC NOT NULL,
			co2				NUMERIC NOT NULL,
			pm25			NUMERIC NOT NULL,
			noise			NUMERIC NOT NULL,
			light			NUMERIC NOT NULL,
			score			NUMERIC NOT NULL,
			max_temperature	NUMERIC NOT NULL,
			min_temperature	NUMERIC NOT NULL,
			sample_count	BIGINT NOT NULL,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_hourly_aggregates PRIMARY KEY (device_id, bucket_start)
		);

		CREATE TABLE IF NOT EXISTS daily_aggregates (
			device_id		TEXT NOT NULL,
			bucket_start	timestamp with time zone NOT NULL,
			temperature		NUMERIC NOT NULL,
			humidity		NUMERIC NOT NULL,
			co2				NUMERIC NOT NULL,
			pm25			NUMERIC NOT NULL,
			noise			NUMERIC NOT NULL,
			light			NUMERIC NOT NULL,
			score			NUMERIC NOT NULL,
			max_temperature	NUMERIC NOT NULL,
			min_temperature	NUMERIC NOT NULL,
			sample_count	BIGINT NOT NULL,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_daily_aggregates PRIMARY KEY (device_id, bucket_start)
		);

		CREATE TABLE IF NOT EXISTS alarms (
			alarm_id	TEXT NOT NULL,
			device_id	TEXT NOT NULL,
			alarm_type	TEXT NOT NULL,
			description	TEXT NOT NULL DEFAULT '',
			severity	INT NOT NULL,
			observed_at	timestamp with time zone NOT NULL,
			closed		BOOLEAN NOT NULL DEFAULT FALSE,
			created_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_alarms PRIMARY KEY (alarm_id)
		);

		CREATE INDEX IF NOT EXISTS alarms_device_idx ON alarms (device_id) WHERE NOT closed;
	`)
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}
