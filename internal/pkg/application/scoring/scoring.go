// Package scoring converts raw environmental readings into per factor scores,
// status labels, an overall score and a list of suggestions. All functions are
// pure and safe for concurrent use.
package scoring

import (
	"github.com/diwise/iot-env-monitor/pkg/types"
)

// comfort band and decay slope for the factors that are scored linearly
type band struct {
	low, high float64
	slope     float64
}

var temperatureBands = map[types.AreaType]band{
	types.AreaLiving:     {low: 22, high: 26, slope: 12},
	types.AreaTeaching:   {low: 20, high: 25, slope: 10},
	types.AreaRecreation: {low: 18, high: 27, slope: 8},
}

var humidityBand = band{low: 40, high: 60, slope: 2}

// stepped score tiers, ordered from best to worst
type tier struct {
	limit float64
	score float64
}

var co2Tiers = []tier{{800, 100}, {1000, 80}, {1500, 60}, {2000, 40}}
var pm25Tiers = []tier{{35, 100}, {75, 80}, {115, 60}, {150, 40}}

var noiseTiers = map[types.AreaType][]tier{
	types.AreaLiving:     {{40, 100}, {50, 80}, {60, 60}, {70, 40}},
	types.AreaTeaching:   {{45, 100}, {55, 80}, {65, 60}, {75, 40}},
	types.AreaRecreation: {{55, 100}, {65, 80}, {75, 60}, {85, 40}},
}

// light is banded below and above a comfort range; the low side ramps from 60
// at full darkness up to 100 at the band edge
type lightBand struct {
	low, high      float64
	bright, strong float64
}

var lightBands = map[types.AreaType]lightBand{
	types.AreaLiving:     {low: 200, high: 500, bright: 750, strong: 1000},
	types.AreaTeaching:   {low: 400, high: 750, bright: 1000, strong: 1500},
	types.AreaRecreation: {low: 300, high: 1000, bright: 1500, strong: 2000},
}

type weights struct {
	temperature, humidity, co2, pm25, noise, light float64
}

var areaWeights = map[types.AreaType]weights{
	types.AreaLiving:     {0.25, 0.15, 0.2, 0.2, 0.1, 0.1},
	types.AreaTeaching:   {0.2, 0.1, 0.15, 0.15, 0.2, 0.2},
	types.AreaRecreation: {0.2, 0.1, 0.2, 0.2, 0.15, 0.15},
}

// Score assesses a single reading in the context of its area type and the
// given time slot. The time slot only influences suggestion generation,
// never the numeric scores.
func Score(r types.Reading, slot types.TimeSlot) types.ScoredReading {
	area := r.AreaType
	if _, ok := areaWeights[area]; !ok {
		area = types.ParseAreaType(string(area))
	}

	scores := types.FactorScores{
		Temperature: TemperatureScore(r.Temperature, area),
		Humidity:    HumidityScore(r.Humidity),
		CO2:         CO2Score(r.CO2),
		PM25:        PM25Score(r.PM25),
		Noise:       NoiseScore(r.Noise, area),
		Light:       LightScore(r.Light, area),
	}

	w := areaWeights[area]
	scores.Overall = clamp(
		scores.Temperature*w.temperature +
			scores.Humidity*w.humidity +
			scores.CO2*w.co2 +
			scores.PM25*w.pm25 +
			scores.Noise*w.noise +
			scores.Light*w.light)

	status := types.FactorStatus{
		Temperature: TemperatureStatus(r.Temperature, area),
		Humidity:    HumidityStatus(r.Humidity),
		CO2:         CO2Status(r.CO2),
		PM25:        PM25Status(r.PM25),
		Noise:       NoiseStatus(r.Noise, area),
		Light:       LightStatus(r.Light, area),
	}

	scored := r
	scored.AreaType = area

	return types.ScoredReading{
		Reading:     scored,
		Scores:      scores,
		Status:      status,
		Suggestions: suggestions(scored, slot),
	}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func TemperatureScore(temp float64, area types.AreaType) float64 {
	b := temperatureBands[area]
	if temp >= b.low && temp <= b.high {
		return 100
	}
	if temp < b.low {
		return clamp(100 - (b.low-temp)*b.slope)
	}
	return clamp(100 - (temp-b.high)*b.slope)
}

func HumidityScore(humidity float64) float64 {
	b := humidityBand
	if humidity >= b.low && humidity <= b.high {
		return 100
	}
	if humidity < b.low {
		return clamp(100 - (b.low-humidity)*b.slope)
	}
	return clamp(100 - (humidity-b.high)*b.slope)
}

func stepped(value float64, tiers []tier) float64 {
	for _, t := range tiers {
		if value <= t.limit {
			return t.score
		}
	}
	return 20
}

func CO2Score(co2 float64) float64 {
	return stepped(co2, co2Tiers)
}

func PM25Score(pm25 float64) float64 {
	return stepped(pm25, pm25Tiers)
}

func NoiseScore(noise float64, area types.AreaType) float64 {
	return stepped(noise, noiseTiers[area])
}

func LightScore(light float64, area types.AreaType) float64 {
	b := lightBands[area]
	if light >= b.low && light <= b.high {
		return 100
	}
	if light < b.low {
		return clamp(60 + (light/b.low)*40)
	}
	if light <= b.bright {
		return 80
	}
	if light <= b.strong {
		return 60
	}
	return 40
}
