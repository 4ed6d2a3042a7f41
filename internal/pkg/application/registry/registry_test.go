package registry

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/matryer/is"
)

var defaults = types.DeviceConfig{
	ReportInterval:    60,
	HeartbeatInterval: 30,
	AlertTempMin:      18,
	AlertTempMax:      26,
	AlertHumidityMin:  40,
	AlertHumidityMax:  70,
	AlertCO2Max:       1000,
	AlertPM25Max:      75,
}

func TestRegisterIsIdempotent(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	is.True(r.Register("sensor-01", "b1-101", "sensor"))
	is.True(!r.Register("sensor-01", "b2-202", "sensor"))

	d, err := r.Get("sensor-01")
	is.NoErr(err)
	is.Equal(d.Location, "b1-101") // second register must not mutate
	is.Equal(d.Status, types.DeviceOnline)
	is.Equal(d.Config, defaults)
}

func TestConcurrentRegisterCreatesExactlyOneDevice(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	var created atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Register("sensor-01", "b1-101", "sensor") {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	is.Equal(created.Load(), int32(1))
	is.Equal(len(r.ListAll()), 1)
}

func TestRecentWindowIsBounded(t *testing.T) {
	is := is.New(t)
	r := New(defaults)
	r.Register("sensor-01", "b1-101", "sensor")

	for i := 0; i < 150; i++ {
		reading := types.ScoredReading{}
		reading.DeviceID = "sensor-01"
		reading.Timestamp = time.Unix(int64(i), 0)
		r.RecordReading("sensor-01", reading)
	}

	d, err := r.Get("sensor-01")
	is.NoErr(err)
	is.Equal(len(d.RecentReadings), 100)
	is.Equal(d.RecentReadings[0].Timestamp, time.Unix(50, 0)) // oldest 50 evicted
	is.Equal(d.RecentReadings[99].Timestamp, time.Unix(149, 0))
}

func TestSweepLivenessTakesStaleDevicesOffline(t *testing.T) {
	is := is.New(t)

	now := time.Now()
	clock := func() time.Time { return now }
	r := New(defaults, WithClock(clock))

	r.Register("stale", "b1-101", "sensor")
	r.Register("fresh", "b1-101", "sensor")

	// 3 × 30s heartbeat interval plus a bit
	now = now.Add(91 * time.Second)
	r.Heartbeat("fresh")

	offline := r.SweepLiveness()
	is.Equal(offline, []string{"stale"})

	d, _ := r.Get("stale")
	is.Equal(d.Status, types.DeviceOffline)
	d, _ = r.Get("fresh")
	is.Equal(d.Status, types.DeviceOnline)

	// a heartbeat brings the stale device back
	r.Heartbeat("stale")
	d, _ = r.Get("stale")
	is.Equal(d.Status, types.DeviceOnline)
}

func TestSweepLivenessNeverOverridesFaultOrMaintenance(t *testing.T) {
	is := is.New(t)

	now := time.Now()
	r := New(defaults, WithClock(func() time.Time { return now }))

	r.Register("broken", "b1-101", "sensor")
	r.Register("serviced", "b1-101", "sensor")
	r.SetStatus("broken", types.DeviceFault)
	r.SetStatus("serviced", types.DeviceMaintenance)

	now = now.Add(time.Hour)
	offline := r.SweepLiveness()
	is.Equal(len(offline), 0)

	d, _ := r.Get("broken")
	is.Equal(d.Status, types.DeviceFault)
	d, _ = r.Get("serviced")
	is.Equal(d.Status, types.DeviceMaintenance)
}

func TestFallbackLivenessThresholdForUnconfiguredDevices(t *testing.T) {
	is := is.New(t)

	now := time.Now()
	r := New(types.DeviceConfig{}, WithClock(func() time.Time { return now }))
	r.Register("sensor-01", "b1-101", "sensor")

	now = now.Add(89 * time.Second)
	is.Equal(len(r.SweepLiveness()), 0)

	now = now.Add(2 * time.Second)
	is.Equal(r.SweepLiveness(), []string{"sensor-01"})
}

func TestListByLocation(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	r.Register("a", "b1-101", "sensor")
	r.Register("b", "b1-101", "sensor")
	r.Register("c", "b2-202", "sensor")

	is.Equal(len(r.ListByLocation("b1-101")), 2)
	is.Equal(len(r.ListByLocation("b2-202")), 1)
	is.Equal(len(r.ListByLocation("nowhere")), 0)
	is.Equal(len(r.ListAll()), 3)
}

func TestUnregister(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	r.Register("sensor-01", "b1-101", "sensor")
	is.True(r.Unregister("sensor-01"))
	is.True(!r.Unregister("sensor-01"))

	_, err := r.Get("sensor-01")
	is.Equal(err, ErrDeviceNotFound)
}

func TestSnapshotsAreIsolatedFromWriters(t *testing.T) {
	is := is.New(t)
	r := New(defaults)
	r.Register("sensor-01", "b1-101", "sensor")

	reading := types.ScoredReading{}
	reading.DeviceID = "sensor-01"
	r.RecordReading("sensor-01", reading)

	d, err := r.Get("sensor-01")
	is.NoErr(err)

	r.RecordReading("sensor-01", reading)
	is.Equal(len(d.RecentReadings), 1) // snapshot must not grow
}

func TestSeed(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	csv := strings.Join([]string{
		"deviceID;location;deviceType;reportInterval;heartbeatInterval",
		"sensor-01;b1-101;sensor;60;30",
		"sensor-02;b2-202;sensor;;",
		"sensor-03;gym;sensor;300;120",
	}, "\n")

	err := Seed(context.Background(), r, strings.NewReader(csv))
	is.NoErr(err)
	is.Equal(len(r.ListAll()), 3)

	d, err := r.Get("sensor-03")
	is.NoErr(err)
	is.Equal(d.Config.ReportInterval, 300)
	is.Equal(d.Config.HeartbeatInterval, 120)

	d, err = r.Get("sensor-02")
	is.NoErr(err)
	is.Equal(d.Config.HeartbeatInterval, defaults.HeartbeatInterval)
}

func TestSeedRejectsMalformedRows(t *testing.T) {
	is := is.New(t)
	r := New(defaults)

	err := Seed(context.Background(), r, strings.NewReader("sensor-01;b1-101;sensor;soon;30\n"))
	is.True(err != nil)
}
