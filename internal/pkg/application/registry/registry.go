// Package registry tracks the live state of every known device: status,
// heartbeats and a bounded window of recent readings. Device counts are
// small, so a single coarse lock guards all state.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
)

var ErrDeviceNotFound = fmt.Errorf("device not found")

const recentWindowCapacity = 100

// a device with no configured heartbeat interval goes offline after this long
const fallbackLivenessThreshold = 90 * time.Second

// heartbeats may be delayed; three missed intervals in a row means offline
const livenessIntervalMultiplier = 3

type device struct {
	types.Device
	window []types.ScoredReading
}

type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*device
	defaults types.DeviceConfig
	now      func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry. Devices registered without explicit
// configuration inherit the given defaults.
func New(defaults types.DeviceConfig, opts ...Option) *Registry {
	r := &Registry{
		devices:  map[string]*device{},
		defaults: defaults,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register creates a device entry and returns true. If the identity already
// exists nothing is modified and false is returned.
func (r *Registry) Register(deviceID, location, deviceType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[deviceID]; exists {
		return false
	}

	now := r.now()
	r.devices[deviceID] = &device{
		Device: types.Device{
			DeviceID:      deviceID,
			Location:      location,
			DeviceType:    deviceType,
			Status:        types.DeviceOnline,
			RegisteredAt:  now,
			LastHeartbeat: now,
			LastSeen:      now,
			Config:        r.defaults,
		},
	}

	return true
}

// Heartbeat refreshes the liveness timestamps and brings an offline device
// back online. Unknown identities are ignored.
func (r *Registry) Heartbeat(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return false
	}

	now := r.now()
	d.LastHeartbeat = now
	d.LastSeen = now

	if d.Status == types.DeviceOffline {
		d.Status = types.DeviceOnline
	}

	return true
}

// RecordReading appends to the device's recent window, evicting the oldest
// entry once the window is full.
func (r *Registry) RecordReading(deviceID string, reading types.ScoredReading) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return false
	}

	if len(d.window) == recentWindowCapacity {
		copy(d.window, d.window[1:])
		d.window[len(d.window)-1] = reading
	} else {
		d.window = append(d.window, reading)
	}

	d.LastSeen = r.now()

	return true
}

func (r *Registry) Get(deviceID string) (types.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return types.Device{}, ErrDeviceNotFound
	}

	return d.snapshot(), nil
}

func (r *Registry) ListAll() []types.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]types.Device, 0, len(r.devices))
	for _, d := range r.devices {
		result = append(result, d.snapshot())
	}

	return result
}

func (r *Registry) ListByLocation(location string) []types.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]types.Device, 0)
	for _, d := range r.devices {
		if d.Location == location {
			result = append(result, d.snapshot())
		}
	}

	return result
}

// SweepLiveness demotes devices with stale heartbeats to offline and restores
// devices with fresh heartbeats to online. Fault and maintenance states are
// never touched. The identities of devices that went offline are returned.
func (r *Registry) SweepLiveness() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	wentOffline := make([]string, 0)

	for id, d := range r.devices {
		if d.Status == types.DeviceFault || d.Status == types.DeviceMaintenance {
			continue
		}

		threshold := fallbackLivenessThreshold
		if d.Config.HeartbeatInterval > 0 {
			threshold = time.Duration(d.Config.HeartbeatInterval) * time.Second * livenessIntervalMultiplier
		}

		if now.Sub(d.LastHeartbeat) > threshold {
			if d.Status != types.DeviceOffline {
				d.Status = types.DeviceOffline
				wentOffline = append(wentOffline, id)
			}
		} else {
			d.Status = types.DeviceOnline
		}
	}

	return wentOffline
}

// Unregister removes the device entirely.
func (r *Registry) Unregister(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[deviceID]; !exists {
		return false
	}

	delete(r.devices, deviceID)

	return true
}

func (r *Registry) UpdateConfig(deviceID string, config types.DeviceConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return false
	}

	d.Config = config

	return true
}

// SetStatus forces a device status, used by operators to mark devices as
// faulty or under maintenance and to clear those states again.
func (r *Registry) SetStatus(deviceID string, status types.DeviceStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[deviceID]
	if !exists {
		return false
	}

	d.Status = status

	return true
}

func (d *device) snapshot() types.Device {
	snap := d.Device
	snap.RecentReadings = make([]types.ScoredReading, len(d.window))
	copy(snap.RecentReadings, d.window)
	return snap
}
