package mqtt

import (
	"fmt"
	"strings"
)

// Topic patterns for the lighting agent
const (
	TopicLightingContext = "automation/context/lighting/+"
	TopicLightingCommand = "automation/command/lighting/+"
)

// LightingContextTopic is where each cycle's outcome is published
// Pattern: automation/context/lighting/{location}
func LightingContextTopic(location string) string {
	return fmt.Sprintf("automation/context/lighting/%s", location)
}

// LightingCommandTopic accepts on-demand commands for a location
// Pattern: automation/command/lighting/{location}
func LightingCommandTopic(location string) string {
	return fmt.Sprintf("automation/command/lighting/%s", location)
}

// AvailabilityTopic carries the retained online/offline status of the agent
// Pattern: automation/status/lux/{location}
func AvailabilityTopic(location string) string {
	return fmt.Sprintf("automation/status/lux/%s", location)
}

// LocationFromTopic returns the last segment of a four-part automation topic
func LocationFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[3], nil
}
