package lighting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lux-EE464H/Lux/pkg/mqtt"
)

// MQTTReporter publishes each cycle as lighting context
type MQTTReporter struct {
	client mqtt.Client
}

// NewMQTTReporter creates a reporter publishing through client
func NewMQTTReporter(client mqtt.Client) *MQTTReporter {
	return &MQTTReporter{client: client}
}

// Report publishes the cycle report as JSON
func (r *MQTTReporter) Report(ctx context.Context, report *CycleReport) error {
	msg := map[string]interface{}{
		"source":          "lux-agent",
		"type":            "lighting",
		"location":        report.Location,
		"cycle_id":        report.CycleID,
		"state":           report.Outcome,
		"override":        report.Override != nil,
		"override_weight": report.OverrideWeight(),
		"manual_change":   report.ManualChange,
		"automated":       report.Outcome == OutcomeActuated,
		"report":          report,
		"timestamp":       report.StartedAt.Format(time.RFC3339),
	}
	if report.Target != nil {
		msg["brightness"] = report.Target.Brightness
		msg["color"] = report.Target.Color.String()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal context message: %w", err)
	}

	topic := mqtt.LightingContextTopic(report.Location)
	if err := r.client.Publish(topic, 0, true, payload); err != nil {
		return fmt.Errorf("failed to publish context to %s: %w", topic, err)
	}
	return nil
}

// PointWriter accepts telemetry points
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time)
}

// InfluxReporter writes each cycle as a lighting_cycle point
type InfluxReporter struct {
	writer PointWriter
}

// NewInfluxReporter creates a reporter writing through writer
func NewInfluxReporter(writer PointWriter) *InfluxReporter {
	return &InfluxReporter{writer: writer}
}

// Report writes the cycle. Writes are non-blocking and never fail here.
func (r *InfluxReporter) Report(ctx context.Context, report *CycleReport) error {
	tags := map[string]string{
		"location": report.Location,
		"outcome":  report.Outcome,
	}
	fields := map[string]interface{}{
		"override_weight": report.OverrideWeight(),
		"manual_change":   report.ManualChange,
		"feedback_sent":   report.FeedbackSent,
		"attempts":        report.Attempts,
		"votes":           report.Votes,
		"duration_ms":     report.DurationMs,
	}
	if report.DeltaE != nil {
		fields["delta_e"] = *report.DeltaE
	}
	if report.CloudCover != nil {
		fields["cloud_cover"] = *report.CloudCover
	}
	if report.Target != nil {
		fields["brightness"] = report.Target.Brightness
		fields["r"] = report.Target.Color.R
		fields["g"] = report.Target.Color.G
		fields["b"] = report.Target.Color.B
	}
	if report.StatusCode != 0 {
		fields["status_code"] = report.StatusCode
	}
	if report.Daylight != nil {
		fields["sun_altitude"] = report.Daylight.SunAltitude
	}

	r.writer.WritePoint("lighting_cycle", tags, fields, report.StartedAt)
	return nil
}
