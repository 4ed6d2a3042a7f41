package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/alarms"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/maintenance"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/monitor"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/registry"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/storage"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-env-monitor/internal/pkg/presentation/api"
	"github.com/diwise/iot-env-monitor/internal/pkg/presentation/mqtt"
	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const serviceName string = "iot-env-monitor"
const serviceVersion string = "0.1.0"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort

	configurationFile
	devicesFile

	dbHost
	dbUser
	dbPassword
	dbPort
	dbName
	dbSSLMode

	mqttBroker
	mqttUser
	mqttPassword
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",

		configurationFile: "/opt/diwise/config/config.yaml",
		devicesFile:       "/opt/diwise/config/devices.csv",

		dbHost:     "",
		dbUser:     "",
		dbPassword: "",
		dbPort:     "5432",
		dbName:     "diwise",
		dbSSLMode:  "disable",

		mqttBroker:   "",
		mqttUser:     "",
		mqttPassword: "",
	}
}

type appConfig struct {
	DeviceDefaults types.DeviceConfig `yaml:"deviceDefaults"`
}

func main() {
	godotenv.Load()

	flags := parseExternalConfig(defaultFlags())

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion)
	exitIf(err, logger, "could not initialize tracing")
	defer cleanup()

	cfg, err := parseConfigFile(flags[configurationFile])
	exitIf(err, logger, "could not parse configuration file")

	s, err := storage.New(ctx, storage.NewConfig(
		flags[dbHost], flags[dbUser], flags[dbPassword], flags[dbPort], flags[dbName], flags[dbSSLMode],
	))
	exitIf(err, logger, "could not connect to database")
	defer s.Close()

	err = s.Initialize(ctx)
	exitIf(err, logger, "could not initialize database")

	reg := registry.New(cfg.DeviceDefaults)

	err = seedDevices(ctx, reg, flags[devicesFile])
	exitIf(err, logger, "could not seed devices")

	alarmSvc := alarms.New(s)
	svc := monitor.New(reg, s, alarmSvc)

	scheduler := maintenance.New(reg, s, alarmSvc, logger)
	err = scheduler.Start()
	exitIf(err, logger, "could not start maintenance scheduler")
	defer scheduler.Stop()

	if flags[mqttBroker] != "" {
		adapter := mqtt.New(mqtt.NewConfig(flags[mqttBroker], flags[mqttUser], flags[mqttPassword]), svc, logger)
		err = adapter.Start()
		exitIf(err, logger, "could not start mqtt adapter")
		defer adapter.Stop()
	}

	mux := api.RegisterHandlers(router.New(serviceName, logger), reg, svc, alarmSvc)

	server := &http.Server{
		Addr:    flags[listenAddress] + ":" + flags[servicePort],
		Handler: mux,
	}

	go func() {
		logger.Info().Str("address", server.Addr).Msg("starting to listen for incoming connections")

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failure")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedDevices preloads the registry from a csv file. A missing file is not an
// error, the registry starts empty and devices register implicitly.
func seedDevices(ctx context.Context, reg *registry.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	return registry.Seed(ctx, reg, f)
}

func parseConfigFile(path string) (*appConfig, error) {
	cfg := &appConfig{
		DeviceDefaults: types.DeviceConfig{
			ReportInterval:    60,
			HeartbeatInterval: 30,
			AlertTempMin:      18,
			AlertTempMax:      26,
			AlertHumidityMin:  40,
			AlertHumidityMax:  70,
			AlertCO2Max:       1000,
			AlertPM25Max:      75,
		},
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(b, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseExternalConfig(flags flagMap) flagMap {
	// Allow environment variables to override certain defaults
	envOrDef := func(name, def string) string {
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])

	flags[dbHost] = envOrDef("POSTGRES_HOST", flags[dbHost])
	flags[dbPort] = envOrDef("POSTGRES_PORT", flags[dbPort])
	flags[dbName] = envOrDef("POSTGRES_DBNAME", flags[dbName])
	flags[dbUser] = envOrDef("POSTGRES_USER", flags[dbUser])
	flags[dbPassword] = envOrDef("POSTGRES_PASSWORD", flags[dbPassword])
	flags[dbSSLMode] = envOrDef("POSTGRES_SSLMODE", flags[dbSSLMode])

	flags[mqttBroker] = envOrDef("MQTT_BROKER", flags[mqttBroker])
	flags[mqttUser] = envOrDef("MQTT_USER", flags[mqttUser])
	flags[mqttPassword] = envOrDef("MQTT_PASSWORD", flags[mqttPassword])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("devices", "list of known devices", apply(devicesFile))
	flag.Func("config", "service configuration file", apply(configurationFile))
	flag.Parse()

	return flags
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}
