package natshandler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"gotest.tools/v3/assert"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/transient"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nats.json")
	assert.NilError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewDefaults(t *testing.T) {
	h, err := New(writeConfig(t, `{"Server": "nats://localhost:4222"}`))
	assert.NilError(t, err)

	assert.Equal(t, h.config.Subject, "gridflow.transient.step")
	assert.Equal(t, h.config.PublishHz, 100.0)
	assert.Assert(t, h.PID() != uuid.Nil)
}

func TestNewExplicitConfig(t *testing.T) {
	h, err := New(writeConfig(t, `{"Server": "nats://broker:4222", "Subject": "grid.steps", "PublishHz": 25}`))
	assert.NilError(t, err)

	assert.Equal(t, h.config.Server, "nats://broker:4222")
	assert.Equal(t, h.config.Subject, "grid.steps")
	assert.Equal(t, h.config.PublishHz, 25.0)
}

func TestStepEventPayload(t *testing.T) {
	runID, err := uuid.NewUUID()
	assert.NilError(t, err)

	step := transient.Step{
		Index:     7,
		Time:      0.35,
		Converged: true,
		Result: &powerflow.Result{
			Slack: powerflow.SlackResult{BusID: 1, PMW: 72.4},
			Buses: []powerflow.BusResult{
				{BusID: 1, VmPu: 1.04},
				{BusID: 2, VmPu: 1.025},
			},
		},
	}

	data, err := json.Marshal(newStepEvent(runID, step))
	assert.NilError(t, err)

	var got StepEvent
	assert.NilError(t, json.Unmarshal(data, &got))
	assert.Equal(t, got.RunID, runID.String())
	assert.Equal(t, got.Step, 7)
	assert.Equal(t, got.Time, 0.35)
	assert.Assert(t, got.Converged)
	assert.Assert(t, !got.Held)
	assert.Equal(t, got.SlackMW, 72.4)
	assert.DeepEqual(t, got.BusVmPu, []float64{1.04, 1.025})
}

func TestPublishWithoutConnect(t *testing.T) {
	h, err := New(writeConfig(t, `{}`))
	assert.NilError(t, err)

	step := transient.Step{Result: &powerflow.Result{}}
	err = h.PublishStep(uuid.Nil, step)
	assert.Assert(t, errors.Is(err, nats.ErrConnectionClosed))

	err = h.PublishSeries(context.Background(), &transient.Series{})
	assert.Assert(t, errors.Is(err, nats.ErrConnectionClosed))
}

func capturingHandler(t *testing.T, body string) (*Handler, *[]StepEvent) {
	t.Helper()
	h, err := New(writeConfig(t, body))
	assert.NilError(t, err)

	events := &[]StepEvent{}
	h.publish = func(subject string, data []byte) error {
		assert.Equal(t, subject, h.config.Subject)
		var ev StepEvent
		assert.NilError(t, json.Unmarshal(data, &ev))
		*events = append(*events, ev)
		return nil
	}
	return h, events
}

func TestPublishSeriesDeliversEveryStep(t *testing.T) {
	h, events := capturingHandler(t, `{"PublishHz": 5000}`)

	runID, err := uuid.NewUUID()
	assert.NilError(t, err)
	series := &transient.Series{RunID: runID}
	for i := 0; i < 12; i++ {
		series.Steps = append(series.Steps, transient.Step{
			Index:     i,
			Converged: true,
			Result:    &powerflow.Result{},
		})
	}

	// The replay outpaces the rate limit by orders of magnitude; it must
	// wait its turn rather than drop.
	assert.NilError(t, h.PublishSeries(context.Background(), series))
	assert.Equal(t, len(*events), 12)
	for i, ev := range *events {
		assert.Equal(t, ev.Step, i)
		assert.Equal(t, ev.RunID, runID.String())
	}
}

func TestPublishStepDropsAboveRate(t *testing.T) {
	h, events := capturingHandler(t, `{"PublishHz": 1}`)

	step := transient.Step{Result: &powerflow.Result{}}
	assert.NilError(t, h.PublishStep(uuid.Nil, step))
	// Burst is spent; an immediate second step is dropped without error.
	assert.NilError(t, h.PublishStep(uuid.Nil, step))
	assert.Equal(t, len(*events), 1)
}
