package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/monitor"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/pkg/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	telemetryTopic = "environment/+/telemetry"
	heartbeatTopic = "environment/+/heartbeat"
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

func NewConfig(broker, username, password string) Config {
	return Config{
		Broker:   broker,
		ClientID: "iot-env-monitor-" + uuid.NewString()[0:8],
		Username: username,
		Password: password,
	}
}

// Adapter bridges device telemetry arriving over MQTT into the ingestion
// pipeline.
type Adapter struct {
	client mqtt.Client
	svc    *monitor.Service
	log    zerolog.Logger
}

func New(config Config, svc *monitor.Service, log zerolog.Logger) *Adapter {
	a := &Adapter{
		svc: svc,
		log: log,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Info().Str("broker", config.Broker).Msg("connected to mqtt broker")
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Error().Err(err).Msg("mqtt connection lost")
	})

	a.client = mqtt.NewClient(opts)

	return a
}

// Start connects to the broker and subscribes to the telemetry and heartbeat
// topics.
func (a *Adapter) Start() error {
	if token := a.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}

	subscriptions := map[string]mqtt.MessageHandler{
		telemetryTopic: a.handleTelemetry,
		heartbeatTopic: a.handleHeartbeat,
	}

	for topic, handler := range subscriptions {
		if token := a.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
		}
		a.log.Info().Str("topic", topic).Msg("subscribed")
	}

	return nil
}

func (a *Adapter) Stop() {
	a.client.Disconnect(250)
}

// telemetryMessage is the wire format devices publish. Timestamps are unix
// seconds, a zero timestamp means the message carries none.
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

func (a *Adapter) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	ctx := logging.NewContextWithLogger(context.Background(), a.log)

	var m telemetryMessage
	err := json.Unmarshal(msg.Payload(), &m)
	if err != nil {
		a.log.Error().Err(err).Str("topic", msg.Topic()).Msg("unable to unmarshal telemetry")
		return
	}

	if m.DeviceID == "" {
		m.DeviceID = deviceIDFromTopic(msg.Topic())
	}
	if m.DeviceID == "" {
		a.log.Error().Str("topic", msg.Topic()).Msg("telemetry without device identity")
		return
	}

	timestamp := time.Now().UTC()
	if m.Timestamp > 0 {
		timestamp = time.Unix(m.Timestamp, 0).UTC()
	}

	reading := types.Reading{
		DeviceID:    m.DeviceID,
		Timestamp:   timestamp,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
		CO2:         m.CO2,
		PM25:        m.PM25,
		Noise:       m.Noise,
		Light:       m.Light,
		Area:        m.Area,
		AreaType:    types.ParseAreaType(m.AreaType),
	}

	err = a.svc.Ingest(ctx, reading)
	if err != nil {
		a.log.Error().Err(err).Str("device_id", m.DeviceID).Msg("ingest failed")
	}
}

func (a *Adapter) handleHeartbeat(client mqtt.Client, msg mqtt.Message) {
	ctx := logging.NewContextWithLogger(context.Background(), a.log)

	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		a.log.Error().Str("topic", msg.Topic()).Msg("heartbeat without device identity")
		return
	}

	err := a.svc.Heartbeat(ctx, deviceID)
	if err != nil {
		a.log.Debug().Str("device_id", deviceID).Msg("heartbeat from unregistered device ignored")
	}
}

// deviceIDFromTopic extracts the identity segment from topics shaped like
// environment/<deviceID>/telemetry.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return ""
	}

	return parts[1]
}
