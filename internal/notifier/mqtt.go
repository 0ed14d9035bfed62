// Package notifier publishes dataset refresh events over MQTT so downstream
// consumers (dashboards, alerting) learn about new data without polling.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/engine"
	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/mqtt"
)

const (
	topicDatasetRefreshed = "/dataset/refreshed"

	publishTimeout = 5 * time.Second
)

// refreshEvent is the wire form of a refresh notification.
type refreshEvent struct {
	Event         string    `json:"event"`
	RunID         string    `json:"runId"`
	Type          string    `json:"type"`
	NewVehicles   int       `json:"newVehicles"`
	TotalVehicles int       `json:"totalVehicles"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// MqttNotifier implements engine.Notifier on top of an MQTT client. Publish
// failures are logged and dropped; a broker outage must never fail a sync run.
type MqttNotifier struct {
	client    mqtt.Client
	topicRoot string
	logger    log.Logger
}

var _ engine.Notifier = (*MqttNotifier)(nil)

// NewMqttNotifier creates a notifier publishing under topicRoot.
func NewMqttNotifier(client mqtt.Client, topicRoot string, logger log.Logger) *MqttNotifier {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &MqttNotifier{
		client:    client,
		topicRoot: topicRoot,
		logger:    logger.WithName("notifier"),
	}
}

// DatasetRefreshed publishes a QoS 1 refresh event.
func (n *MqttNotifier) DatasetRefreshed(ctx context.Context, res *engine.Result) {
	payload, err := json.Marshal(&refreshEvent{
		Event:         "dataset_refreshed",
		RunID:         res.RunID,
		Type:          res.Type,
		NewVehicles:   res.NewVehicles,
		TotalVehicles: res.TotalVehicles,
		LastUpdated:   res.LastUpdated,
	})
	if err != nil {
		n.logger.Error(err, "Failed to encode refresh event")
		return
	}

	topic := n.topicRoot + topicDatasetRefreshed
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.client.Publish(pubCtx, topic, 1, false, payload); err != nil {
		n.logger.Error(err, "Failed to publish refresh event", "topic", topic)
		return
	}
	n.logger.Debug("Published refresh event", "topic", topic, "runID", res.RunID)
}
