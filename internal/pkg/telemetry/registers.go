package telemetry

import (
	"encoding/binary"
	"math"
)

// DataType names the register encoding of a metered value.
type DataType string

const (
	U16 DataType = "u16"
	I16 DataType = "i16"
	U32 DataType = "u32"
	I32 DataType = "i32"
	F32 DataType = "f32"
	F64 DataType = "f64"
)

// Register describes one holding-register field on a meter.
type Register struct {
	Name       string   `json:"Name"`
	Address    uint16   `json:"Address"`
	DataType   DataType `json:"DataType"`
	Endianness string   `json:"Endianness"`
	// Scale converts the raw register value to engineering units. Zero is
	// read as 1.
	Scale float64 `json:"Scale"`
}

// sizeOf returns the register count occupied by a data type. Modbus holding
// registers are 16 bits wide.
func sizeOf(dt DataType) uint16 {
	switch dt {
	case U16, I16:
		return 1
	case U32, I32, F32:
		return 2
	case F64:
		return 4
	}
	return 1
}

func byteOrder(endianness string) binary.ByteOrder {
	if endianness == "little" {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// decode converts a holding-register response into a float64.
func decode(bytes []byte, reg Register) float64 {
	endian := byteOrder(reg.Endianness)
	var n float64
	switch reg.DataType {
	case U16:
		n = float64(endian.Uint16(bytes))
	case I16:
		n = float64(int16(endian.Uint16(bytes)))
	case U32:
		n = float64(endian.Uint32(bytes))
	case I32:
		n = float64(int32(endian.Uint32(bytes)))
	case F32:
		n = float64(math.Float32frombits(endian.Uint32(bytes)))
	case F64:
		n = math.Float64frombits(endian.Uint64(bytes))
	}
	if reg.Scale != 0 {
		n *= reg.Scale
	}
	return n
}

// encode converts a float64 into register bytes. Used by tests and by
// write-back paths against simulated meters.
func encode(val float64, reg Register) []byte {
	endian := byteOrder(reg.Endianness)
	var bytes []byte
	switch reg.DataType {
	case U16:
		bytes = make([]byte, 2)
		endian.PutUint16(bytes, uint16(val))
	case I16:
		bytes = make([]byte, 2)
		endian.PutUint16(bytes, uint16(int16(val)))
	case U32:
		bytes = make([]byte, 4)
		endian.PutUint32(bytes, uint32(val))
	case I32:
		bytes = make([]byte, 4)
		endian.PutUint32(bytes, uint32(int32(val)))
	case F32:
		bytes = make([]byte, 4)
		endian.PutUint32(bytes, math.Float32bits(float32(val)))
	case F64:
		bytes = make([]byte, 8)
		endian.PutUint64(bytes, math.Float64bits(val))
	}
	return bytes
}
