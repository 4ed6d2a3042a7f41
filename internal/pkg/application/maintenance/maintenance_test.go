package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/alarms"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/registry"
	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestRunHourlyDrivesAggregation(t *testing.T) {
	is, s, store, _ := testSetup(t)

	s.runHourly(context.Background())
	is.Equal(store.hourlyCalls, 1)
	is.Equal(store.cleanupCalls, 0)
}

func TestRunDailyAggregatesThenCleansUp(t *testing.T) {
	is, s, store, _ := testSetup(t)

	s.runDaily(context.Background())
	is.Equal(store.dailyCalls, 1)
	is.Equal(store.cleanupCalls, 1)
}

func TestRunDailyCleansUpEvenWhenAggregationFails(t *testing.T) {
	is, s, store, _ := testSetup(t)

	store.err = errors.New("connection refused")

	s.runDaily(context.Background())
	is.Equal(store.cleanupCalls, 1)
}

func TestSweepOpensAlarmForSilentDevice(t *testing.T) {
	is, s, _, alarmStore := testSetup(t)

	now := time.Now()
	clock := func() time.Time { return now }
	r := registry.New(types.DeviceConfig{HeartbeatInterval: 30}, registry.WithClock(clock))
	s.registry = r

	r.Register("dev-1", "room-101", "esp32")

	now = now.Add(91 * time.Second)
	s.sweepLiveness(context.Background())

	open, err := alarmStore.QueryAlarms(context.Background(), "dev-1", true)
	is.NoErr(err)
	is.Equal(len(open), 1)
	is.Equal(open[0].AlarmType, alarms.AlarmDeviceNotObserved)

	device, err := r.Get("dev-1")
	is.NoErr(err)
	is.Equal(device.Status, types.DeviceOffline)
}

func TestSweepIsQuietWhenAllDevicesAreLive(t *testing.T) {
	is, s, _, alarmStore := testSetup(t)

	s.registry.Register("dev-1", "room-101", "esp32")
	s.sweepLiveness(context.Background())

	open, err := alarmStore.QueryAlarms(context.Background(), "", true)
	is.NoErr(err)
	is.Equal(len(open), 0)
}

func TestStartAndStop(t *testing.T) {
	is, s, _, _ := testSetup(t)

	is.NoErr(s.Start())
	s.Stop()
}

func testSetup(t *testing.T) (*is.I, *schedulerImpl, *fakeStore, *fakeAlarmStorage) {
	is := is.New(t)

	store := &fakeStore{}
	alarmStore := &fakeAlarmStorage{}
	r := registry.New(types.DeviceConfig{HeartbeatInterval: 30})

	s := New(r, store, alarms.New(alarmStore), zerolog.Nop()).(*schedulerImpl)

	return is, s, store, alarmStore
}

type fakeStore struct {
	hourlyCalls  int
	dailyCalls   int
	cleanupCalls int
	err          error
}

func (f *fakeStore) AggregateHourly(ctx context.Context) error {
	f.hourlyCalls++
	return f.err
}

func (f *fakeStore) AggregateDaily(ctx context.Context) error {
	f.dailyCalls++
	return f.err
}

func (f *fakeStore) Cleanup(ctx context.Context) error {
	f.cleanupCalls++
	return f.err
}

type fakeAlarmStorage struct {
	alarms []types.Alarm
}

func (f *fakeAlarmStorage) AddAlarm(ctx context.Context, alarm types.Alarm) error {
	f.alarms = append(f.alarms, alarm)
	return nil
}

func (f *fakeAlarmStorage) QueryAlarms(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error) {
	result := make([]types.Alarm, 0)
	for _, a := range f.alarms {
		if deviceID != "" && a.DeviceID != deviceID {
			continue
		}
		if onlyOpen && a.Closed {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (f *fakeAlarmStorage) CloseAlarm(ctx context.Context, alarmID string) error {
	for i := range f.alarms {
		if f.alarms[i].ID == alarmID {
			f.alarms[i].Closed = true
			return nil
		}
	}
	return errors.New("no such alarm")
}
