package types

import (
	"time"
)

type AreaType string

const (
	AreaLiving     AreaType = "living"
	AreaTeaching   AreaType = "teaching"
	AreaRecreation AreaType = "recreation"
)

// ParseAreaType maps free text to an area type. Unrecognized values map to
// the teaching area, which carries the most conservative comfort bands.
func ParseAreaType(s string) AreaType {
	switch AreaType(s) {
	case AreaLiving, AreaTeaching, AreaRecreation:
		return AreaType(s)
	default:
		return AreaTeaching
	}
}

type DeviceStatus string

const (
	DeviceOnline      DeviceStatus = "online"
	DeviceOffline     DeviceStatus = "offline"
	DeviceFault       DeviceStatus = "fault"
	DeviceMaintenance DeviceStatus = "maintenance"
)

func ParseDeviceStatus(s string) (DeviceStatus, bool) {
	switch DeviceStatus(s) {
	case DeviceOnline, DeviceOffline, DeviceFault, DeviceMaintenance:
		return DeviceStatus(s), true
	default:
		return "", false
	}
}

type TimeSlot string

const (
	MorningClass   TimeSlot = "morning-class"
	AfternoonClass TimeSlot = "afternoon-class"
	EveningClass   TimeSlot = "evening-class"
	SleepingTime   TimeSlot = "sleeping-time"
	RestTime       TimeSlot = "rest-time"
)

// Reading is one raw sensor observation as delivered by a transport adapter.
type Reading struct {
	DeviceID    string    `json:"deviceID"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	CO2         float64   `json:"co2"`
	PM25        float64   `json:"pm25"`
	Noise       float64   `json:"noise"`
	Light       float64   `json:"light"`
	Area        string    `json:"area"`
	AreaType    AreaType  `json:"areaType"`
}

type FactorScores struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CO2         float64 `json:"co2"`
	PM25        float64 `json:"pm25"`
	Noise       float64 `json:"noise"`
	Light       float64 `json:"light"`
	Overall     float64 `json:"overall"`
}

type FactorStatus struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	CO2         string `json:"co2"`
	PM25        string `json:"pm25"`
	Noise       string `json:"noise"`
	Light       string `json:"light"`
}

// ScoredReading is a reading with its derived assessment attached. It is
// treated as immutable once produced by the scoring engine.
type ScoredReading struct {
	Reading
	Scores      FactorScores `json:"scores"`
	Status      FactorStatus `json:"status"`
	Suggestions []string     `json:"suggestions"`
}

// Record is one row from the tiered store. Realtime rows carry a single
// observation, aggregate rows carry per-factor averages over their bucket
// together with temperature extrema and a sample count.
type Record struct {
	DeviceID    string    `json:"deviceID"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	CO2         float64   `json:"co2"`
	PM25        float64   `json:"pm25"`
	Noise       float64   `json:"noise"`
	Light       float64   `json:"light"`
	Score       float64   `json:"score"`

	Aggregated     bool    `json:"aggregated,omitempty"`
	Hourly         bool    `json:"hourly,omitempty"`
	MaxTemperature float64 `json:"maxTemperature,omitempty"`
	MinTemperature float64 `json:"minTemperature,omitempty"`
	SampleCount    int64   `json:"sampleCount,omitempty"`
}

// DeviceConfig holds per device reporting cadence and alert thresholds.
// Intervals are in seconds.
type DeviceConfig struct {
	ReportInterval    int     `json:"reportInterval" yaml:"reportInterval"`
	HeartbeatInterval int     `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	AlertTempMin      float64 `json:"alertTempMin" yaml:"alertTempMin"`
	AlertTempMax      float64 `json:"alertTempMax" yaml:"alertTempMax"`
	AlertHumidityMin  float64 `json:"alertHumidityMin" yaml:"alertHumidityMin"`
	AlertHumidityMax  float64 `json:"alertHumidityMax" yaml:"alertHumidityMax"`
	AlertCO2Max       float64 `json:"alertCO2Max" yaml:"alertCO2Max"`
	AlertPM25Max      float64 `json:"alertPM25Max" yaml:"alertPM25Max"`
}

// Device is a point in time snapshot of a registered device.
type Device struct {
	DeviceID       string          `json:"deviceID"`
	Location       string          `json:"location"`
	DeviceType     string          `json:"deviceType"`
	Status         DeviceStatus    `json:"status"`
	RegisteredAt   time.Time       `json:"registeredAt"`
	LastHeartbeat  time.Time       `json:"lastHeartbeat"`
	LastSeen       time.Time       `json:"lastSeen"`
	Config         DeviceConfig    `json:"config"`
	RecentReadings []ScoredReading `json:"recentReadings,omitempty"`
}

// EnvironmentScore is the reporting view served to dashboards. It is derived
// from the scoring engine output and never persisted on its own.
type EnvironmentScore struct {
	LocationID   string             `json:"locationID"`
	Score        float64            `json:"score"`
	Grade        string             `json:"grade"`
	FactorScores map[string]float64 `json:"factorScores"`
}

type Alarm struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceID"`
	AlarmType   string    `json:"alarmType"`
	Description string    `json:"description"`
	Severity    int       `json:"severity"`
	ObservedAt  time.Time `json:"observedAt"`
	Closed      bool      `json:"closed"`
}

const (
	AlarmSeverityWarning = 1
	AlarmSeveritySevere  = 2
)
