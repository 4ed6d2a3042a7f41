package alarms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/matryer/is"
)

func TestHandleReadingWithinLimitsAddsNothing(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)

	err := svc.HandleReading(context.Background(), reading(22, 50, 600, 10), defaultConfig())
	is.NoErr(err)
	is.Equal(len(store.alarms), 0)
}

func TestHandleReadingOpensWarning(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)

	err := svc.HandleReading(context.Background(), reading(22, 50, 1200, 10), defaultConfig())
	is.NoErr(err)

	is.Equal(len(store.alarms), 1)
	is.Equal(store.alarms[0].AlarmType, AlarmCO2AboveLimit)
	is.Equal(store.alarms[0].Severity, types.AlarmSeverityWarning)
	is.Equal(store.alarms[0].DeviceID, "dev-1")
}

func TestHandleReadingEscalatesToSevere(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)

	err := svc.HandleReading(context.Background(), reading(22, 50, 2200, 10), defaultConfig())
	is.NoErr(err)

	is.Equal(len(store.alarms), 1)
	is.Equal(store.alarms[0].Severity, types.AlarmSeveritySevere)
}

func TestHandleReadingDetectsMultipleBreaches(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)

	err := svc.HandleReading(context.Background(), reading(10, 90, 1200, 120), defaultConfig())
	is.NoErr(err)

	byType := map[string]types.Alarm{}
	for _, a := range store.alarms {
		byType[a.AlarmType] = a
	}

	is.Equal(len(store.alarms), 4)
	is.Equal(byType[AlarmTemperatureBelowLimit].Severity, types.AlarmSeveritySevere)
	is.Equal(byType[AlarmHumidityAboveLimit].Severity, types.AlarmSeveritySevere)
	is.Equal(byType[AlarmCO2AboveLimit].Severity, types.AlarmSeverityWarning)
	is.Equal(byType[AlarmPM25AboveLimit].Severity, types.AlarmSeveritySevere)
}

func TestRepeatedBreachOpensOneAlarm(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)
	ctx := context.Background()

	is.NoErr(svc.HandleReading(ctx, reading(22, 50, 1200, 10), defaultConfig()))
	is.NoErr(svc.HandleReading(ctx, reading(22, 50, 1300, 10), defaultConfig()))

	is.Equal(len(store.alarms), 1)
}

func TestBreachReopensAfterClose(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)
	ctx := context.Background()

	is.NoErr(svc.HandleReading(ctx, reading(22, 50, 1200, 10), defaultConfig()))
	is.NoErr(svc.Close(ctx, store.alarms[0].ID))
	is.NoErr(svc.HandleReading(ctx, reading(22, 50, 1300, 10), defaultConfig()))

	is.Equal(len(store.alarms), 2)
}

func TestAddFillsDefaults(t *testing.T) {
	is := is.New(t)
	store := newFakeStorage()
	svc := New(store)

	err := svc.Add(context.Background(), types.Alarm{
		DeviceID:  "dev-1",
		AlarmType: AlarmDeviceNotObserved,
	})
	is.NoErr(err)

	is.Equal(len(store.alarms), 1)
	is.True(store.alarms[0].ID != "")
	is.True(!store.alarms[0].ObservedAt.IsZero())
}

func TestAddRequiresDeviceID(t *testing.T) {
	is := is.New(t)
	svc := New(newFakeStorage())

	err := svc.Add(context.Background(), types.Alarm{AlarmType: AlarmDeviceNotObserved})
	is.True(err != nil)
}

func reading(temp, humidity, co2, pm25 float64) types.Reading {
	return types.Reading{
		DeviceID:    "dev-1",
		Timestamp:   time.Now().UTC(),
		Temperature: temp,
		Humidity:    humidity,
		CO2:         co2,
		PM25:        pm25,
		Noise:       45,
		Light:       300,
		Area:        "room-101",
		AreaType:    types.AreaLiving,
	}
}

func defaultConfig() types.DeviceConfig {
	return types.DeviceConfig{
		ReportInterval:    60,
		HeartbeatInterval: 30,
		AlertTempMin:      18,
		AlertTempMax:      26,
		AlertHumidityMin:  40,
		AlertHumidityMax:  70,
		AlertCO2Max:       1000,
		AlertPM25Max:      75,
	}
}

type fakeStorage struct {
	alarms []types.Alarm
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{alarms: make([]types.Alarm, 0)}
}

func (f *fakeStorage) AddAlarm(ctx context.Context, alarm types.Alarm) error {
	f.alarms = append(f.alarms, alarm)
	return nil
}

func (f *fakeStorage) QueryAlarms(ctx context.Context, deviceID string, onlyOpen bool) ([]types.Alarm, error) {
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

func (f *fakeStorage) CloseAlarm(ctx context.Context, alarmID string) error {
	for i := range f.alarms {
		if f.alarms[i].ID == alarmID {
			f.alarms[i].Closed = true
			return nil
		}
	}
	return errors.New("no such alarm")
}
