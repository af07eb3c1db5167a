package powerflow

import (
	"time"

	"github.com/google/uuid"
)

// BusResult is the solved operating point of one bus.
type BusResult struct {
	BusID int     `json:"BusID"`
	Name  string  `json:"Name"`
	VmPu  float64 `json:"VmPu"`
	VaDeg float64 `json:"VaDeg"`
	PMW   float64 `json:"PMW"`
	QMVAr float64 `json:"QMVAr"`
}

// BranchResult carries the power flow at both ends of a branch, the series
// loss, and the loading relative to the thermal rating.
type BranchResult struct {
	Name       string  `json:"Name"`
	From       int     `json:"From"`
	To         int     `json:"To"`
	PFromMW    float64 `json:"PFromMW"`
	QFromMVAr  float64 `json:"QFromMVAr"`
	PToMW      float64 `json:"PToMW"`
	QToMVAr    float64 `json:"QToMVAr"`
	LossMW     float64 `json:"LossMW"`
	LossMVAr   float64 `json:"LossMVAr"`
	LoadingPct float64 `json:"LoadingPct"`
}

// GeneratorResult is one machine's dispatched output.
type GeneratorResult struct {
	Name  string  `json:"Name"`
	BusID int     `json:"BusID"`
	PMW   float64 `json:"PMW"`
	QMVAr float64 `json:"QMVAr"`
	VmPu  float64 `json:"VmPu"`
}

// LoadResult is one load's realized consumption for the solve.
type LoadResult struct {
	Name  string  `json:"Name"`
	BusID int     `json:"BusID"`
	PMW   float64 `json:"PMW"`
	QMVAr float64 `json:"QMVAr"`
}

// SlackResult is the reference bus generation that balanced the system.
type SlackResult struct {
	BusID int     `json:"BusID"`
	PMW   float64 `json:"PMW"`
	QMVAr float64 `json:"QMVAr"`
}

// Result is a complete steady-state solution.
type Result struct {
	RunID      uuid.UUID         `json:"RunID"`
	Buses      []BusResult       `json:"Buses"`
	Branches   []BranchResult    `json:"Branches"`
	Generators []GeneratorResult `json:"Generators"`
	Loads      []LoadResult      `json:"Loads"`
	Slack      SlackResult       `json:"Slack"`
	Iterations int               `json:"Iterations"`
	Mismatch   float64           `json:"Mismatch"`
	Elapsed    time.Duration     `json:"Elapsed"`
}
