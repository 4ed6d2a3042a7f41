package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// device-simulator publishes plausible telemetry for a handful of fake
// devices, for exercising the service without hardware.

type telemetryMessage struct {
	DeviceID    string  `json:"device_id"`
	Timestamp   int64   `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CO2         float64 `json:"co2"`
	PM25        float64 `json:"pm25"`
	Noise       float64 `json:"noise"`
	Light       float64 `json:"light"`
	Area        string  `json:"area"`
	AreaType    string  `json:"area_type"`
}

type simulatedDevice struct {
	deviceID string
	area     string
	areaType string
}

func main() {
	godotenv.Load()

	broker := flag.String("broker", envOrDef("MQTT_BROKER", "tcp://localhost:1883"), "mqtt broker address")
	interval := flag.Duration("interval", 10*time.Second, "time between readings")
	deviceCount := flag.Int("devices", 3, "number of simulated devices")
	flag.Parse()

	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(*broker)
	opts.SetClientID("device-simulator-" + uuid.NewString()[0:8])
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatal().Err(token.Error()).Msg("could not connect to broker")
	}
	defer client.Disconnect(250)

	logger.Info().Str("broker", *broker).Int("devices", *deviceCount).Msg("simulator started")

	areaTypes := []string{"living", "teaching", "recreation"}

	devices := make([]simulatedDevice, 0, *deviceCount)
	for i := 0; i < *deviceCount; i++ {
		devices = append(devices, simulatedDevice{
			deviceID: fmt.Sprintf("sim-%03d", i+1),
			area:     fmt.Sprintf("room-%d01", i+1),
			areaType: areaTypes[i%len(areaTypes)],
		})
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			logger.Info().Msg("simulator stopping")
			return
		case <-ticker.C:
			for _, d := range devices {
				payload, _ := json.Marshal(d.reading())
				topic := fmt.Sprintf("environment/%s/telemetry", d.deviceID)

				token := client.Publish(topic, 1, false, payload)
				if token.Wait() && token.Error() != nil {
					logger.Error().Err(token.Error()).Str("device_id", d.deviceID).Msg("publish failed")
					continue
				}

				logger.Debug().Str("device_id", d.deviceID).Msg("published telemetry")
			}
		}
	}
}

func (d simulatedDevice) reading() telemetryMessage {
	return telemetryMessage{
		DeviceID:    d.deviceID,
		Timestamp:   time.Now().Unix(),
		Temperature: jitter(23, 2),
		Humidity:    jitter(50, 8),
		CO2:         jitter(700, 150),
		PM25:        jitter(15, 6),
		Noise:       jitter(48, 6),
		Light:       jitter(400, 100),
		Area:        d.area,
		AreaType:    d.areaType,
	}
}

// jitter draws from a normal distribution around mean, clamped at zero.
func jitter(mean, stddev float64) float64 {
	v := mean + rand.NormFloat64()*stddev
	if v < 0 {
		return 0
	}
	return v
}

func envOrDef(name, def string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return def
}
