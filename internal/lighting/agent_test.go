package lighting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner returns the next scripted result on every cycle
type scriptedRunner struct {
	mu      sync.Mutex
	results []error
	calls   int
	ran     chan struct{}
}

func (r *scriptedRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.calls < len(r.results) {
		err = r.results[r.calls]
	}
	r.calls++
	if r.ran != nil {
		select {
		case r.ran <- struct{}{}:
		default:
		}
	}
	if err == ErrCycleInProgress {
		return nil, err
	}
	return &CycleReport{CycleID: "cycle", Outcome: OutcomeActuated}, err
}

func TestAgent_RunOnceSwallowsCycleErrors(t *testing.T) {
	runner := &scriptedRunner{results: []error{
		ErrNoLightsAvailable,
		&ActuationFailure{StatusCode: 500, Attempts: 4},
		ErrCycleInProgress,
		nil,
	}}
	agent := NewAgent(runner, time.Minute, testLogger())

	for i := 0; i < 4; i++ {
		agent.RunOnce(context.Background())
	}

	assert.Equal(t, int64(4), agent.CycleCount())
	require.NotNil(t, agent.LastReport())
	assert.Equal(t, "cycle", agent.LastReport().CycleID)
}

func TestAgent_StartRunsImmediatelyAndStops(t *testing.T) {
	runner := &scriptedRunner{ran: make(chan struct{}, 1)}
	agent := NewAgent(runner, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Start(ctx) }()

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgent_TickerDrivesCycles(t *testing.T) {
	runner := &scriptedRunner{ran: make(chan struct{}, 1)}
	agent := NewAgent(runner, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not run", i+1)
		}
	}
	assert.Eventually(t, func() bool { return agent.CycleCount() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAgent_TriggerRunsCycle(t *testing.T) {
	runner := &scriptedRunner{ran: make(chan struct{}, 1)}
	agent := NewAgent(runner, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Start(ctx)

	<-runner.ran
	require.True(t, agent.Trigger())

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered cycle did not run")
	}
}

func TestAgent_TriggerCoalesces(t *testing.T) {
	agent := NewAgent(&scriptedRunner{}, time.Hour, testLogger())

	assert.True(t, agent.Trigger())
	assert.False(t, agent.Trigger(), "pending trigger absorbs the second request")
}
