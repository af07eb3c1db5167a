package telemetry

import (
	"errors"
	"math"
	"testing"

	"github.com/goburrow/modbus"
	"gotest.tools/v3/assert"
)

func TestDecodeEncodeRoundtrip(t *testing.T) {
	cases := []struct {
		name string
		reg  Register
		val  float64
	}{
		{"f32 big endian", Register{DataType: F32, Endianness: "big"}, 125.5},
		{"f32 little endian", Register{DataType: F32, Endianness: "little"}, 125.5},
		{"f64 big endian", Register{DataType: F64, Endianness: "big"}, 163.0625},
		{"u16", Register{DataType: U16, Endianness: "big"}, 4823},
		{"i16 negative", Register{DataType: I16, Endianness: "big"}, -350},
		{"u32", Register{DataType: U32, Endianness: "big"}, 1234567},
		{"i32 negative", Register{DataType: I32, Endianness: "little"}, -98765},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decode(encode(tc.val, tc.reg), tc.reg)
			assert.Equal(t, got, tc.val)
		})
	}
}

func TestDecodeScale(t *testing.T) {
	reg := Register{DataType: U16, Endianness: "big", Scale: 0.1}
	raw := encode(1255, Register{DataType: U16, Endianness: "big"})

	got := decode(raw, reg)
	assert.Assert(t, math.Abs(got-125.5) < 1e-9, "got %v", got)
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, sizeOf(U16), uint16(1))
	assert.Equal(t, sizeOf(I16), uint16(1))
	assert.Equal(t, sizeOf(F32), uint16(2))
	assert.Equal(t, sizeOf(I32), uint16(2))
	assert.Equal(t, sizeOf(F64), uint16(4))
}

func TestOverridesFrom(t *testing.T) {
	meters := []Meter{
		{
			LoadName:  "Load 5",
			PRegister: Register{Name: "load5_p", Address: 0, DataType: F32},
			QRegister: Register{Name: "load5_q", Address: 2, DataType: F32},
		},
		{
			LoadName:  "Load 6",
			PRegister: Register{Name: "load6_p", Address: 4, DataType: F32},
			QRegister: Register{Name: "load6_q", Address: 6, DataType: F32},
		},
	}
	values := map[string]float64{
		"load5_p": 131.2,
		"load5_q": 52.8,
		// Load 6's P register failed to read; only Q came back.
		"load6_q": 28.4,
	}

	ov := overridesFrom(values, meters)
	assert.Equal(t, ov.LoadP["Load 5"], 131.2)
	assert.Equal(t, ov.LoadQ["Load 5"], 52.8)
	assert.Equal(t, ov.LoadQ["Load 6"], 28.4)

	_, ok := ov.LoadP["Load 6"]
	assert.Assert(t, !ok)
}

// stubClient serves canned holding-register bytes by address. Addresses
// outside the map fail like a gateway exception would.
type stubClient struct {
	modbus.Client
	registers map[uint16][]byte
}

func (c stubClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	b, ok := c.registers[address]
	if !ok {
		return nil, errors.New("modbus: exception '2' (illegal data address)")
	}
	return b, nil
}

func TestReadRegistersPartial(t *testing.T) {
	meters := []Meter{
		{
			LoadName:  "Load 5",
			PRegister: Register{Name: "load5_p", Address: 100, DataType: F32, Endianness: "big"},
			QRegister: Register{Name: "load5_q", Address: 102, DataType: F32, Endianness: "big"},
		},
	}
	client := stubClient{registers: map[uint16][]byte{
		100: encode(131.5, Register{DataType: F32, Endianness: "big"}),
		// Address 102 is absent; its read fails.
	}}

	values, err := readRegisters(client, meters)
	assert.Assert(t, err != nil)
	assert.Equal(t, len(values), 1)
	assert.Equal(t, values["load5_p"], 131.5)
}

func TestPartialOverridesKeepsCollectedValues(t *testing.T) {
	meters := []Meter{
		{
			LoadName:  "Load 5",
			PRegister: Register{Name: "load5_p", Address: 100, DataType: F32},
			QRegister: Register{Name: "load5_q", Address: 102, DataType: F32},
		},
	}
	readErr := errors.New("modbus: exception '2' (illegal data address)")

	// One good register survives a partial poll.
	ov, err := partialOverrides(map[string]float64{"load5_p": 131.5}, meters, readErr)
	assert.NilError(t, err)
	assert.Equal(t, ov.LoadP["Load 5"], 131.5)
	_, ok := ov.LoadQ["Load 5"]
	assert.Assert(t, !ok)

	// A poll that collected nothing surfaces the error.
	_, err = partialOverrides(map[string]float64{}, meters, readErr)
	assert.Assert(t, errors.Is(err, readErr))
}

func TestPollerConfig(t *testing.T) {
	p, err := New("../../../config/telemetry/meters.json")
	assert.NilError(t, err)
	assert.Equal(t, len(p.meters), 3)
	assert.Equal(t, p.meters[0].LoadName, "Load 5")
}
