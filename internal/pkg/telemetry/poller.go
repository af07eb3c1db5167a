/*
poller.go Reads live load measurements from Modbus/TCP revenue meters and
shapes them into per-solve load overrides, so a study can start from metered
conditions instead of the model's nominal setpoints.
*/

package telemetry

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/goburrow/modbus"

	"gridflow/internal/pkg/powerflow"
)

// Meter maps one metered feeder to a model load by name.
type Meter struct {
	LoadName  string   `json:"LoadName"`
	PRegister Register `json:"PRegister"`
	QRegister Register `json:"QRegister"`
}

// Poller polls a Modbus/TCP gateway for meter readings.
type Poller struct {
	handler *modbus.TCPClientHandler
	meters  []Meter
}

type config struct {
	IPAddr       string  `json:"IPAddr"`
	Port         string  `json:"Port"`
	SlaveID      byte    `json:"SlaveID"`
	Timeout      int     `json:"Timeout"`
	EnableLogger bool    `json:"EnableLogger"`
	Meters       []Meter `json:"Meters"`
}

// New builds a Poller from a JSON config file.
func New(configPath string) (Poller, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return Poller{}, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Poller{}, err
	}

	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID
	if cfg.EnableLogger {
		handler.Logger = log.New(os.Stdout, "modbus: ", log.LstdFlags)
	}

	return Poller{handler: handler, meters: cfg.Meters}, nil
}

// Read polls every configured register once. Registers that fail to read
// are omitted from the result; the first read error is returned alongside
// whatever was collected.
func (p Poller) Read() (map[string]float64, error) {
	if err := p.handler.Connect(); err != nil {
		return nil, err
	}
	defer p.handler.Close()
	return readRegisters(modbus.NewClient(p.handler), p.meters)
}

func readRegisters(client modbus.Client, meters []Meter) (map[string]float64, error) {
	values := make(map[string]float64)
	var firstErr error
	for _, m := range meters {
		for _, reg := range []Register{m.PRegister, m.QRegister} {
			resp, err := client.ReadHoldingRegisters(reg.Address, sizeOf(reg.DataType))
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			values[reg.Name] = decode(resp, reg)
		}
	}
	return values, firstErr
}

// ReadOverrides polls the meters and shapes the readings into solver
// overrides keyed by load name. A failed register costs only its own
// reading; only a poll that collected nothing surfaces the error.
func (p Poller) ReadOverrides() (*powerflow.Overrides, error) {
	values, err := p.Read()
	return partialOverrides(values, p.meters, err)
}

func partialOverrides(values map[string]float64, meters []Meter, err error) (*powerflow.Overrides, error) {
	if err != nil {
		if len(values) == 0 {
			return nil, err
		}
		log.Printf("[Telemetry] partial meter read (%d registers): %v", len(values), err)
	}
	return overridesFrom(values, meters), nil
}

// overridesFrom maps raw register readings onto load overrides. A meter
// whose registers are missing from the reading contributes nothing.
func overridesFrom(values map[string]float64, meters []Meter) *powerflow.Overrides {
	ov := &powerflow.Overrides{
		LoadP: make(map[string]float64),
		LoadQ: make(map[string]float64),
	}
	for _, m := range meters {
		if v, ok := values[m.PRegister.Name]; ok {
			ov.LoadP[m.LoadName] = v
		}
		if v, ok := values[m.QRegister.Name]; ok {
			ov.LoadQ[m.LoadName] = v
		}
	}
	return ov
}
