package registry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
)

// Seed registers devices from a csv file with the columns
// deviceID;location;deviceType;reportInterval;heartbeatInterval.
// The interval columns may be empty, in which case the registry defaults
// apply. Already known devices are left untouched.
func Seed(ctx context.Context, r *Registry, devices io.Reader) error {
	log := logging.GetLoggerFromContext(ctx)

	reader := csv.NewReader(devices)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	registered := 0

	for i, row := range rows {
		if i == 0 && row[0] == "deviceID" {
			continue
		}

		if len(row) < 3 {
			return fmt.Errorf("seed file row %d has %d columns, expected at least 3", i+1, len(row))
		}

		deviceID, location, deviceType := row[0], row[1], row[2]

		if !r.Register(deviceID, location, deviceType) {
			continue
		}

		registered++

		cfg := r.defaults
		if len(row) > 3 && row[3] != "" {
			if cfg.ReportInterval, err = strconv.Atoi(row[3]); err != nil {
				return fmt.Errorf("seed file row %d has invalid report interval: %w", i+1, err)
			}
		}
		if len(row) > 4 && row[4] != "" {
			if cfg.HeartbeatInterval, err = strconv.Atoi(row[4]); err != nil {
				return fmt.Errorf("seed file row %d has invalid heartbeat interval: %w", i+1, err)
			}
		}

		r.UpdateConfig(deviceID, cfg)
	}

	log.Info().Int("rows", len(rows)).Int("registered", registered).Msg("seeded devices from file")

	return nil
}
