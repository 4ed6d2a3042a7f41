package monitor

import (
	"context"
	"sort"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/samber/lo"
)

// RealtimeData returns the most recent scored reading for a device.
func (svc *Service) RealtimeData(ctx context.Context, deviceID string) (types.ScoredReading, error) {
	device, err := svc.registry.Get(deviceID)
	if err != nil {
		return types.ScoredReading{}, err
	}

	if len(device.RecentReadings) == 0 {
		return types.ScoredReading{}, ErrNoReadings
	}

	return device.RecentReadings[len(device.RecentReadings)-1], nil
}

// RecentReadings returns a device's in-memory reading window, oldest first.
func (svc *Service) RecentReadings(ctx context.Context, deviceID string) ([]types.ScoredReading, error) {
	device, err := svc.registry.Get(deviceID)
	if err != nil {
		return nil, err
	}

	return device.RecentReadings, nil
}

// Suggestions returns the improvement suggestions attached to a device's
// latest reading.
func (svc *Service) Suggestions(ctx context.Context, deviceID string) ([]string, error) {
	latest, err := svc.RealtimeData(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return latest.Suggestions, nil
}

// EnvironmentScores summarises the latest reading of every device that has
// one into a per-location score, sorted by location. Devices sharing a
// location contribute equally to its mean.
func (svc *Service) EnvironmentScores(ctx context.Context) []types.EnvironmentScore {
	type accumulator struct {
		sum     types.FactorScores
		devices float64
	}

	byLocation := map[string]*accumulator{}

	for _, device := range svc.registry.ListAll() {
		if len(device.RecentReadings) == 0 {
			continue
		}

		latest := device.RecentReadings[len(device.RecentReadings)-1]

		acc, ok := byLocation[device.Location]
		if !ok {
			acc = &accumulator{}
			byLocation[device.Location] = acc
		}

		acc.sum.Temperature += latest.Scores.Temperature
		acc.sum.Humidity += latest.Scores.Humidity
		acc.sum.CO2 += latest.Scores.CO2
		acc.sum.PM25 += latest.Scores.PM25
		acc.sum.Noise += latest.Scores.Noise
		acc.sum.Light += latest.Scores.Light
		acc.sum.Overall += latest.Scores.Overall
		acc.devices++
	}

	locations := lo.Keys(byLocation)
	sort.Strings(locations)

	return lo.Map(locations, func(location string, _ int) types.EnvironmentScore {
		acc := byLocation[location]
		overall := acc.sum.Overall / acc.devices

		return types.EnvironmentScore{
			LocationID: location,
			Score:      overall,
			Grade:      Grade(overall),
			FactorScores: map[string]float64{
				"temperature": acc.sum.Temperature / acc.devices,
				"humidity":    acc.sum.Humidity / acc.devices,
				"co2":         acc.sum.CO2 / acc.devices,
				"pm25":        acc.sum.PM25 / acc.devices,
				"noise":       acc.sum.Noise / acc.devices,
				"light":       acc.sum.Light / acc.devices,
			},
		}
	})
}

// Grade maps an overall score to its reporting grade.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "fair"
	case score >= 60:
		return "passable"
	default:
		return "poor"
	}
}
