package scoring

import "github.com/diwise/iot-env-monitor/pkg/types"

// Status labels reuse the scoring band edges and add extreme tiers beyond
// them, so that a label always agrees with the direction the score moved.

func TemperatureStatus(temp float64, area types.AreaType) string {
	b := temperatureBands[area]

	switch {
	case temp >= b.low && temp <= b.high:
		return "comfortable"
	case temp < b.low:
		if temp < 0 {
			return "extreme-cold"
		}
		if temp < 10 {
			return "severe-cold"
		}
		return "too-cold"
	case temp > 35:
		return "extreme-heat"
	case temp > 30:
		return "severe-heat"
	default:
		return "too-hot"
	}
}

func HumidityStatus(humidity float64) string {
	switch {
	case humidity >= humidityBand.low && humidity <= humidityBand.high:
		return "comfortable"
	case humidity < humidityBand.low:
		if humidity < 20 {
			return "extreme-dry"
		}
		return "dry"
	case humidity > 85:
		return "extreme-humid"
	case humidity > 75:
		return "very-humid"
	default:
		return "humid"
	}
}

func CO2Status(co2 float64) string {
	switch {
	case co2 <= 600:
		return "excellent"
	case co2 <= 1000:
		return "good"
	case co2 <= 2000:
		return "moderate"
	case co2 <= 3000:
		return "poor"
	case co2 <= 4000:
		return "very-poor"
	default:
		return "hazardous"
	}
}

func PM25Status(pm25 float64) string {
	switch {
	case pm25 <= 35:
		return "excellent"
	case pm25 <= 75:
		return "good"
	case pm25 <= 150:
		return "light-pollution"
	case pm25 <= 250:
		return "moderate-pollution"
	case pm25 <= 350:
		return "heavy-pollution"
	default:
		return "severe-pollution"
	}
}

func NoiseStatus(noise float64, area types.AreaType) string {
	tiers := noiseTiers[area]

	switch {
	case noise <= tiers[0].limit:
		return "quiet"
	case noise <= tiers[1].limit:
		return "moderate"
	case noise <= tiers[2].limit:
		return "noisy"
	case noise <= tiers[3].limit:
		return "very-noisy"
	default:
		return "hazardous"
	}
}

func LightStatus(light float64, area types.AreaType) string {
	b := lightBands[area]

	dark := 100.0
	if area == types.AreaLiving {
		dark = 50.0
	}

	switch {
	case light >= b.low && light <= b.high:
		return "comfortable"
	case light < b.low:
		if light < dark {
			return "dark"
		}
		return "dim"
	case light <= b.bright:
		return "bright"
	case light <= b.strong:
		return "very-bright"
	default:
		return "glaring"
	}
}
