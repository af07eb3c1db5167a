/*
natshandler.go Publishes transient-run snapshots on a NATS subject so
monitoring consumers can follow a study live. Live publishing is rate
limited; a step that arrives faster than the configured rate is dropped
rather than stalling the run. Replaying a finished run instead paces itself
with the same limiter, so every step is delivered.
*/

package natshandler

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"gridflow/internal/pkg/transient"
)

// Handler streams step snapshots to a NATS server.
type Handler struct {
	pid     uuid.UUID
	config  config
	limiter *rate.Limiter
	nc      *nats.Conn
	publish func(subject string, data []byte) error
}

type config struct {
	Server    string  `json:"Server"`
	Subject   string  `json:"Subject"`
	PublishHz float64 `json:"PublishHz"`
}

// StepEvent is the wire payload for one simulated step.
type StepEvent struct {
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Time      float64   `json:"time"`
	Converged bool      `json:"converged"`
	Held      bool      `json:"held"`
	SlackMW   float64   `json:"slack_mw"`
	BusVmPu   []float64 `json:"bus_vm_pu"`
}

// New reads the stream config. Connect must be called before publishing.
func New(configPath string) (*Handler, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.Subject == "" {
		cfg.Subject = "gridflow.transient.step"
	}
	if cfg.PublishHz <= 0 {
		cfg.PublishHz = 100
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	return &Handler{
		pid:     pid,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.PublishHz), 1),
	}, nil
}

// PID is an accessor for the handler's process id.
func (h *Handler) PID() uuid.UUID { return h.pid }

// Connect dials the configured NATS server.
func (h *Handler) Connect() error {
	server := h.config.Server
	if server == "" {
		server = nats.DefaultURL
	}
	nc, err := nats.Connect(server)
	if err != nil {
		return err
	}
	h.nc = nc
	h.publish = nc.Publish
	return nil
}

// Close drains the connection.
func (h *Handler) Close() {
	if h.nc != nil {
		h.nc.Close()
	}
}

// newStepEvent shapes a step into its wire payload.
func newStepEvent(runID uuid.UUID, step transient.Step) StepEvent {
	ev := StepEvent{
		RunID:     runID.String(),
		Step:      step.Index,
		Time:      step.Time,
		Converged: step.Converged,
		Held:      step.Held,
		SlackMW:   step.Result.Slack.PMW,
	}
	for _, b := range step.Result.Buses {
		ev.BusVmPu = append(ev.BusVmPu, b.VmPu)
	}
	return ev
}

func (h *Handler) send(ev StepEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.publish(h.config.Subject, data)
}

// PublishStep sends one step snapshot from a live run. A step arriving
// faster than the configured rate is dropped rather than stalling the run.
func (h *Handler) PublishStep(runID uuid.UUID, step transient.Step) error {
	if h.publish == nil {
		return nats.ErrConnectionClosed
	}
	if !h.limiter.Allow() {
		return nil // drop rather than stall the run
	}
	return h.send(newStepEvent(runID, step))
}

// PublishSeries replays a completed run onto the subject. The replay waits
// on the rate limiter instead of dropping, so every step is delivered.
func (h *Handler) PublishSeries(ctx context.Context, s *transient.Series) error {
	if h.publish == nil {
		return nats.ErrConnectionClosed
	}
	for _, step := range s.Steps {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := h.send(newStepEvent(s.RunID, step)); err != nil {
			return err
		}
	}
	log.Printf("[NATS client] published run %s (%d steps)", s.RunID, len(s.Steps))
	return nil
}
