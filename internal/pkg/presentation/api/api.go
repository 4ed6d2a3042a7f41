package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/diwise/iot-env-monitor/internal/pkg/application/alarms"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/monitor"
	"github.com/diwise/iot-env-monitor/internal/pkg/application/registry"
	"github.com/diwise/iot-env-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-env-monitor/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-env-monitor/api")

func RegisterHandlers(router *chi.Mux, reg *registry.Registry, svc *monitor.Service, alarmSvc alarms.AlarmService) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", queryDevicesHandler(reg))
			r.Post("/", registerDeviceHandler(reg))
			r.Get("/{deviceID}", getDeviceDetails(reg))
			r.Delete("/{deviceID}", unregisterDeviceHandler(reg))
			r.Patch("/{deviceID}/config", patchDeviceConfigHandler(reg))
			r.Patch("/{deviceID}/status", patchDeviceStatusHandler(reg))
			r.Post("/{deviceID}/heartbeat", heartbeatHandler(svc))
			r.Get("/{deviceID}/readings", getReadingsHandler(svc))
			r.Get("/{deviceID}/realtime", getRealtimeDataHandler(svc))
			r.Get("/{deviceID}/suggestions", getSuggestionsHandler(svc))
		})

		r.Post("/readings", postReadingHandler(svc))
		r.Get("/environment/scores", getEnvironmentScoresHandler(svc))

		r.Get("/alarms", getAlarmsHandler(alarmSvc))
		r.Patch("/alarms/{alarmID}", closeAlarmHandler(alarmSvc))
	})

	return router
}

func write(w http.ResponseWriter, code int, body any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func queryDevicesHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "query-devices")
		defer span.End()

		location := r.URL.Query().Get("location")

		var devices []types.Device
		if location != "" {
			devices = reg.ListByLocation(location)
		} else {
			devices = reg.ListAll()
		}

		write(w, http.StatusOK, devices)
	}
}

func registerDeviceHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "register-device")
		defer span.End()

		_, log := logging.With(ctx, "api")

		var req registrationRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil || req.DeviceID == "" {
			log.Error().Err(err).Msg("unable to decode registration request")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		created := reg.Register(req.DeviceID, req.Location, req.DeviceType)
		if !created {
			// registration is idempotent, an existing device is untouched
			w.WriteHeader(http.StatusConflict)
			return
		}

		device, _ := reg.Get(req.DeviceID)
		write(w, http.StatusCreated, device)
	}
}

func getDeviceDetails(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "get-device")
		defer span.End()

		device, err := reg.Get(chi.URLParam(r, "deviceID"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		write(w, http.StatusOK, device)
	}
}

func unregisterDeviceHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "unregister-device")
		defer span.End()

		if !reg.Unregister(chi.URLParam(r, "deviceID")) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func patchDeviceConfigHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "patch-device-config")
		defer span.End()

		log := logging.GetLoggerFromContext(ctx)
		deviceID := chi.URLParam(r, "deviceID")

		device, err := reg.Get(deviceID)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		// decode over the current config so omitted fields keep their values
		config := device.Config
		err = json.NewDecoder(r.Body).Decode(&config)
		if err != nil {
			log.Error().Err(err).Msg("unable to decode config patch")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		reg.UpdateConfig(deviceID, config)
		write(w, http.StatusOK, config)
	}
}

func patchDeviceStatusHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		_, span := tracer.Start(r.Context(), "patch-device-status")
		defer span.End()

		var req statusRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, ok := types.ParseDeviceStatus(req.Status)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if !reg.SetStatus(chi.URLParam(r, "deviceID"), status) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func heartbeatHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "device-heartbeat")
		defer span.End()

		err := svc.Heartbeat(ctx, chi.URLParam(r, "deviceID"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func postReadingHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "ingest-reading")
		defer span.End()

		ctx, log := logging.With(ctx, "api")

		var reading types.Reading
		err := json.NewDecoder(r.Body).Decode(&reading)
		if err != nil || reading.DeviceID == "" {
			log.Error().Err(err).Msg("unable to decode reading")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if reading.Timestamp.IsZero() {
			reading.Timestamp = time.Now().UTC()
		}

		err = svc.Ingest(ctx, reading)
		if err != nil {
			span.RecordError(err)
			log.Error().Err(err).Str("device_id", reading.DeviceID).Msg("ingest failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func getReadingsHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "query-readings")
		defer span.End()

		end := time.Now().UTC()
		start := end.Add(-24 * time.Hour)

		var err error
		if s := r.URL.Query().Get("start"); s != "" {
			start, err = time.Parse(time.RFC3339, s)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		if e := r.URL.Query().Get("end"); e != "" {
			end, err = time.Parse(time.RFC3339, e)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		records, err := svc.History(ctx, chi.URLParam(r, "deviceID"), start, end)
		if err != nil {
			span.RecordError(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		write(w, http.StatusOK, records)
	}
}

func getRealtimeDataHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-realtime-data")
		defer span.End()

		latest, err := svc.RealtimeData(ctx, chi.URLParam(r, "deviceID"))
		if err != nil {
			if errors.Is(err, registry.ErrDeviceNotFound) || errors.Is(err, monitor.ErrNoReadings) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			span.RecordError(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		write(w, http.StatusOK, latest)
	}
}

func getSuggestionsHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-suggestions")
		defer span.End()

		suggestions, err := svc.Suggestions(ctx, chi.URLParam(r, "deviceID"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		write(w, http.StatusOK, suggestions)
	}
}

func getEnvironmentScoresHandler(svc *monitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-environment-scores")
		defer span.End()

		write(w, http.StatusOK, svc.EnvironmentScores(ctx))
	}
}

func getAlarmsHandler(alarmSvc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "query-alarms")
		defer span.End()

		deviceID := r.URL.Query().Get("deviceID")
		onlyOpen := r.URL.Query().Get("onlyOpen") == "true"

		result, err := alarmSvc.Get(ctx, deviceID, onlyOpen)
		if err != nil {
			span.RecordError(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		write(w, http.StatusOK, result)
	}
}

func closeAlarmHandler(alarmSvc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "close-alarm")
		defer span.End()

		err := alarmSvc.Close(ctx, chi.URLParam(r, "alarmID"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
