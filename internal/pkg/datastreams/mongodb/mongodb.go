/*
mongodb.go Archives study results to MongoDB: one document per steady-state
solve and one per transient step, keyed by run id. Connection parameters
come from a JSON config file.
*/

package mongodb

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/transient"
)

const (
	steadyStateCollection = "steadyState"
	transientCollection   = "transientSteps"
)

// Handler writes results into a MongoDB database.
type Handler struct {
	pid    uuid.UUID
	config config
}

type config struct {
	URI      string `json:"URI"`
	Port     string `json:"Port"`
	Database string `json:"Database"`
}

// New reads the connection config and returns a Handler. No connection is
// opened until an archive call.
func New(configPath string) (Handler, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Handler{}, err
	}
	return Handler{pid: pid, config: cfg}, nil
}

// PID is an accessor for the handler's process id.
func (h Handler) PID() uuid.UUID { return h.pid }

func (h Handler) connect(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI + ":" + h.config.Port))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// resultDoc flattens a solve result for storage.
func resultDoc(runName string, res *powerflow.Result) bson.M {
	return bson.M{
		"run":        runName,
		"runId":      res.RunID.String(),
		"iterations": res.Iterations,
		"mismatch":   res.Mismatch,
		"buses":      res.Buses,
		"branches":   res.Branches,
		"generators": res.Generators,
		"loads":      res.Loads,
		"slack":      res.Slack,
	}
}

// stepDoc flattens one transient step for storage.
func stepDoc(runName string, runID uuid.UUID, step transient.Step) bson.M {
	return bson.M{
		"run":       runName,
		"runId":     runID.String(),
		"step":      step.Index,
		"time":      step.Time,
		"converged": step.Converged,
		"held":      step.Held,
		"buses":     step.Result.Buses,
		"slack":     step.Result.Slack,
	}
}

// ArchiveResult stores one steady-state solution.
func (h Handler) ArchiveResult(ctx context.Context, runName string, res *powerflow.Result) error {
	client, err := h.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	_, err = client.Database(h.config.Database).Collection(steadyStateCollection).
		InsertOne(ctx, resultDoc(runName, res))
	return err
}

// ArchiveSeries stores every step of a transient run.
func (h Handler) ArchiveSeries(ctx context.Context, runName string, s *transient.Series) error {
	client, err := h.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	coll := client.Database(h.config.Database).Collection(transientCollection)
	docs := make([]interface{}, len(s.Steps))
	for i, step := range s.Steps {
		docs[i] = stepDoc(runName, s.RunID, step)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return err
	}
	log.Printf("[Mongo] archived %d steps for run %s", len(s.Steps), runName)
	return nil
}
