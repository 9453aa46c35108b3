package lighting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Topic() string   { return m.topic }
func (m *mockMessage) Payload() []byte { return m.payload }
func (m *mockMessage) Ack()            {}

func TestCommandHandler(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   string
		triggered bool
	}{
		{"cycle command", "automation/command/lighting/study", `{"action":"cycle"}`, true},
		{"other location", "automation/command/lighting/kitchen", `{"action":"cycle"}`, false},
		{"unknown action", "automation/command/lighting/study", `{"action":"dance"}`, false},
		{"malformed payload", "automation/command/lighting/study", `{nope`, false},
		{"bad topic", "automation/command/study", `{"action":"cycle"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewAgent(&scriptedRunner{}, time.Hour, testLogger())
			handler := agent.CommandHandler("study", testLogger())

			handler(&mockMessage{topic: tt.topic, payload: []byte(tt.payload)})

			// A pending trigger makes the next request fail to enqueue
			assert.Equal(t, tt.triggered, !agent.Trigger())
		})
	}
}
