package scoring

import (
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
)

// TimeSlotAt classifies a timestamp into a coarse time of day category by
// local hour. The classification only tunes suggestion generation.
func TimeSlotAt(t time.Time) types.TimeSlot {
	hour := t.Local().Hour()

	switch {
	case hour >= 8 && hour < 12:
		return types.MorningClass
	case hour >= 14 && hour < 18:
		return types.AfternoonClass
	case hour >= 19 && hour < 22:
		return types.EveningClass
	case hour >= 22 || hour < 6:
		return types.SleepingTime
	default:
		return types.RestTime
	}
}

func isClassTime(slot types.TimeSlot) bool {
	return slot == types.MorningClass || slot == types.AfternoonClass || slot == types.EveningClass
}

func isSleepingTime(slot types.TimeSlot) bool {
	return slot == types.SleepingTime
}
