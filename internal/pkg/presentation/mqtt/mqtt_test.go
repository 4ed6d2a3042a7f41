package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"
)

func TestDeviceIDFromTopic(t *testing.T) {
	is := is.New(t)

	is.Equal(deviceIDFromTopic("environment/dev-1/telemetry"), "dev-1")
	is.Equal(deviceIDFromTopic("environment/dev-1/heartbeat"), "dev-1")
	is.Equal(deviceIDFromTopic("environment/telemetry"), "")
	is.Equal(deviceIDFromTopic(""), "")
}

func TestTelemetryWireFormat(t *testing.T) {
	is := is.New(t)

	payload := []byte(`{
		"device_id": "dev-1",
		"timestamp": 1735689600,
		"temperature": 23.4,
		"humidity": 48.2,
		"co2": 612,
		"pm25": 9.1,
		"noise": 44.0,
		"light": 320,
		"area": "room-101",
		"area_type": "teaching"
	}`)

	var m telemetryMessage
	is.NoErr(json.Unmarshal(payload, &m))

	is.Equal(m.DeviceID, "dev-1")
	is.Equal(m.Timestamp, int64(1735689600))
	is.Equal(m.Temperature, 23.4)
	is.Equal(m.AreaType, "teaching")
}
