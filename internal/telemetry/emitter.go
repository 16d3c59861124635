// Package telemetry publishes download progress over MQTT for external
// observers such as dashboards or batch supervisors.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seppedelanghe/m3u8-downloader/internal/pipeline"
)

const connectTimeout = 5 * time.Second

// Emitter publishes progress events to an MQTT broker. Delivery is
// best-effort: a publish failure is logged and counted but never fails
// the download.
type Emitter struct {
	client mqtt.Client
	topic  string
	runID  string

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewEmitter configures an emitter for the given broker address. The
// tcp scheme is assumed when the address carries none.
func NewEmitter(broker, runID string) (*Emitter, error) {
	if broker == "" {
		return nil, fmt.Errorf("telemetry: broker address is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("telemetry: run ID is required")
	}
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID(runID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Second)

	opts.OnConnect = func(mqtt.Client) {
		slog.Info("telemetry: connected to broker", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("telemetry: connection lost", "broker", broker, "error", err)
	}

	return &Emitter{
		client: mqtt.NewClient(opts),
		topic:  progressTopic(runID),
		runID:  runID,
	}, nil
}

// Connect establishes the broker connection. Called once before the run
// starts; a broker that cannot be reached fails the run up front rather
// than silently dropping every event.
func (e *Emitter) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telemetry: connect canceled: %w", err)
	}

	token := e.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("telemetry: timed out connecting to broker after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: failed to connect to broker: %w", err)
	}
	return nil
}

// Emit publishes one progress event. Never blocks on broker delivery.
func (e *Emitter) Emit(ev pipeline.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.failed.Add(1)
		slog.Error("telemetry: failed to encode progress event", "error", err)
		return
	}

	token := e.client.Publish(e.topic, 1, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			e.failed.Add(1)
			slog.Warn("telemetry: failed to publish progress event",
				"topic", e.topic,
				"batch", ev.Batch,
				"error", err,
			)
			return
		}
		e.published.Add(1)
	}()
}

// Published returns the number of events confirmed by the broker.
func (e *Emitter) Published() uint64 { return e.published.Load() }

// Failed returns the number of events that could not be delivered.
func (e *Emitter) Failed() uint64 { return e.failed.Load() }

// Close disconnects from the broker, allowing in-flight publishes a
// short grace period.
func (e *Emitter) Close() {
	e.client.Disconnect(250)
	slog.Debug("telemetry: disconnected",
		"published", e.published.Load(),
		"failed", e.failed.Load(),
	)
}

func progressTopic(runID string) string {
	return "m3u8/progress/" + runID
}

func clientID(runID string) string {
	return "m3u8-downloader-" + runID
}
