package lighting

import (
	"encoding/json"
	"log/slog"

	"github.com/Lux-EE464H/Lux/pkg/mqtt"
)

// CommandHandler returns an MQTT handler that triggers a cycle on
// {"action":"cycle"} published to the location's command topic
func (a *Agent) CommandHandler(location string, logger *slog.Logger) mqtt.MessageHandler {
	return func(msg mqtt.Message) {
		topicLocation, err := mqtt.LocationFromTopic(msg.Topic())
		if err != nil {
			logger.Warn("Invalid command topic format", "topic", msg.Topic())
			return
		}
		if topicLocation != location {
			return
		}

		var cmd struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			logger.Error("Failed to parse lighting command", "location", location, "error", err)
			return
		}

		switch cmd.Action {
		case "cycle":
			if !a.Trigger() {
				logger.Debug("Cycle already pending", "location", location)
			}
		default:
			logger.Warn("Unknown lighting command", "location", location, "action", cmd.Action)
		}
	}
}
