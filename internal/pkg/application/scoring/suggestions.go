package scoring

import (
	"fmt"

	"github.com/diwise/iot-env-monitor/pkg/types"
)

var areaNames = map[types.AreaType]string{
	types.AreaLiving:     "living area",
	types.AreaTeaching:   "teaching area",
	types.AreaRecreation: "recreation area",
}

// suggestion thresholds per area: below/above the mild edge selects the mild
// variant, beyond the severe edge the severe variant
type suggestionBand struct {
	mildLow, severeLow   float64
	mildHigh, severeHigh float64
}

var temperatureSuggestionBands = map[types.AreaType]suggestionBand{
	types.AreaLiving:     {mildLow: 22, severeLow: 18, mildHigh: 26, severeHigh: 30},
	types.AreaTeaching:   {mildLow: 20, severeLow: 16, mildHigh: 25, severeHigh: 29},
	types.AreaRecreation: {mildLow: 18, severeLow: 14, mildHigh: 27, severeHigh: 31},
}

var noiseSuggestionEdges = map[types.AreaType]struct{ mild, severe float64 }{
	types.AreaLiving:     {mild: 50, severe: 60},
	types.AreaTeaching:   {mild: 55, severe: 65},
	types.AreaRecreation: {mild: 65, severe: 75},
}

var lightSuggestionEdges = map[types.AreaType]struct{ low, high float64 }{
	types.AreaLiving:     {low: 200, high: 500},
	types.AreaTeaching:   {low: 400, high: 750},
	types.AreaRecreation: {low: 300, high: 1000},
}

const sleepingNoiseLimit = 45
const sleepingLightLimit = 100

var positiveConfirmations = map[types.AreaType]string{
	types.AreaLiving:     "the living area environment is comfortable, keep it up",
	types.AreaTeaching:   "the teaching area environment is good for focused study",
	types.AreaRecreation: "the recreation area environment is well suited for activities",
}

// suggestions emits one recommendation per factor outside its comfort band,
// selecting a mild or severe variant by how far outside the value is. The
// returned list is never empty: a fully comfortable environment yields a
// single positive confirmation.
func suggestions(r types.Reading, slot types.TimeSlot) []string {
	area := areaNames[r.AreaType]
	out := make([]string, 0, 4)

	tb := temperatureSuggestionBands[r.AreaType]
	switch {
	case r.Temperature < tb.severeLow:
		out = append(out, fmt.Sprintf("temperature in the %s is critically low (%.0f°C): turn on heating immediately and keep doors and windows closed", area, r.Temperature))
	case r.Temperature < tb.mildLow:
		out = append(out, fmt.Sprintf("temperature in the %s is a bit low (%.0f°C): raise the heating towards %.0f-%.0f°C", area, r.Temperature, tb.mildLow, tb.mildHigh))
	case r.Temperature > tb.severeHigh:
		out = append(out, fmt.Sprintf("temperature in the %s is critically high (%.0f°C): start cooling immediately and avoid strenuous activity", area, r.Temperature))
	case r.Temperature > tb.mildHigh:
		out = append(out, fmt.Sprintf("temperature in the %s is a bit high (%.0f°C): start cooling or increase ventilation", area, r.Temperature))
	}

	switch {
	case r.Humidity < 30:
		out = append(out, fmt.Sprintf("air is severely dry (%.0f%%): run a humidifier and drink plenty of water", r.Humidity))
	case r.Humidity < 40:
		out = append(out, fmt.Sprintf("air is a bit dry (%.0f%%): use a humidifier to bring humidity up to 40-60%%", r.Humidity))
	case r.Humidity > 70:
		out = append(out, fmt.Sprintf("humidity is far too high (%.0f%%): run a dehumidifier and check for water leaks", r.Humidity))
	case r.Humidity > 60:
		out = append(out, fmt.Sprintf("humidity is a bit high (%.0f%%): run a dehumidifier or increase ventilation", r.Humidity))
	}

	switch {
	case r.CO2 > 2000:
		out = append(out, fmt.Sprintf("CO2 level is dangerously high (%.0f ppm): clear the room and ventilate fully", r.CO2))
	case r.CO2 > 1500:
		out = append(out, fmt.Sprintf("CO2 level is far too high (%.0f ppm): ventilate now and reduce the number of people in the room", r.CO2))
	case r.CO2 > 1000:
		out = append(out, fmt.Sprintf("CO2 level is elevated (%.0f ppm): open windows for 15-20 minutes", r.CO2))
	}

	switch {
	case r.PM25 > 115:
		out = append(out, fmt.Sprintf("PM2.5 level is unhealthy (%.0f µg/m³): run an air purifier at full power, keep windows closed and consider wearing a mask", r.PM25))
	case r.PM25 > 75:
		out = append(out, fmt.Sprintf("PM2.5 level is elevated (%.0f µg/m³): run an air purifier and keep windows closed", r.PM25))
	}

	if isSleepingTime(slot) {
		if r.Noise > sleepingNoiseLimit {
			out = append(out, fmt.Sprintf("night time noise level is high (%.0f dB): keep quiet and switch off unneeded equipment", r.Noise))
		}
	} else {
		ne := noiseSuggestionEdges[r.AreaType]
		switch {
		case r.Noise > ne.severe:
			out = append(out, fmt.Sprintf("noise level in the %s is far above limit (%.0f dB): stop the loudest activity and check for abnormal noise sources", area, r.Noise))
		case r.Noise > ne.mild:
			out = append(out, fmt.Sprintf("noise level in the %s is elevated (%.0f dB): lower volumes and avoid shouting", area, r.Noise))
		}
	}

	if isClassTime(slot) {
		le := lightSuggestionEdges[r.AreaType]
		switch {
		case r.Light < le.low:
			out = append(out, fmt.Sprintf("lighting in the %s is insufficient (%.0f lux): switch on more lights or open the curtains", area, r.Light))
		case r.Light > le.high:
			out = append(out, fmt.Sprintf("lighting in the %s is too strong (%.0f lux): dim the lights or shade direct sunlight", area, r.Light))
		}
	} else if isSleepingTime(slot) && r.Light > sleepingLightLimit {
		out = append(out, fmt.Sprintf("night time lighting is too bright (%.0f lux): switch off main lights and close the curtains", r.Light))
	}

	if len(out) == 0 {
		out = append(out, positiveConfirmations[r.AreaType])
	}

	return out
}
