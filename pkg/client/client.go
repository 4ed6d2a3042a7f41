package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/diwise/iot-env-monitor/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-env-monitor-client")

var ErrNotFound = errors.New("not found")

// EnvMonitorClient is a typed client for the monitoring service's HTTP API.
type EnvMonitorClient interface {
	Device(ctx context.Context, deviceID string) (types.Device, error)
	RealtimeData(ctx context.Context, deviceID string) (types.ScoredReading, error)
	Readings(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error)
	EnvironmentScores(ctx context.Context) ([]types.EnvironmentScore, error)
	ReportReading(ctx context.Context, reading types.Reading) error
}

type envMonitorClient struct {
	url        string
	httpClient http.Client
}

func New(serviceURL string) EnvMonitorClient {
	return &envMonitorClient{
		url: serviceURL,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *envMonitorClient) Device(ctx context.Context, deviceID string) (types.Device, error) {
	ctx, span := tracer.Start(ctx, "get-device")
	defer span.End()

	var device types.Device
	err := c.get(ctx, "/api/v0/devices/"+url.PathEscape(deviceID), &device)

	return device, err
}

func (c *envMonitorClient) RealtimeData(ctx context.Context, deviceID string) (types.ScoredReading, error) {
	ctx, span := tracer.Start(ctx, "get-realtime-data")
	defer span.End()

	var latest types.ScoredReading
	err := c.get(ctx, "/api/v0/devices/"+url.PathEscape(deviceID)+"/realtime", &latest)

	return latest, err
}

func (c *envMonitorClient) Readings(ctx context.Context, deviceID string, start, end time.Time) ([]types.Record, error) {
	ctx, span := tracer.Start(ctx, "query-readings")
	defer span.End()

	path := fmt.Sprintf("/api/v0/devices/%s/readings?start=%s&end=%s",
		url.PathEscape(deviceID),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)

	var records []types.Record
	err := c.get(ctx, path, &records)

	return records, err
}

func (c *envMonitorClient) EnvironmentScores(ctx context.Context) ([]types.EnvironmentScore, error) {
	ctx, span := tracer.Start(ctx, "get-environment-scores")
	defer span.End()

	var scores []types.EnvironmentScore
	err := c.get(ctx, "/api/v0/environment/scores", &scores)

	return scores, err
}

func (c *envMonitorClient) ReportReading(ctx context.Context, reading types.Reading) error {
	ctx, span := tracer.Start(ctx, "report-reading")
	defer span.End()

	body, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/readings", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to report reading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return nil
}

func (c *envMonitorClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	err = json.Unmarshal(body, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}
