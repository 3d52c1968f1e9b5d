package graphstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

func encodeFloats(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("float blob length %d is not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func encodePairs(v [][2]int64) []byte {
	buf := make([]byte, 16*len(v))
	for i, p := range v {
		binary.LittleEndian.PutUint64(buf[16*i:], uint64(p[0]))
		binary.LittleEndian.PutUint64(buf[16*i+8:], uint64(p[1]))
	}
	return buf
}

func decodePairs(b []byte) ([][2]int64, error) {
	if len(b)%16 != 0 {
		return nil, fmt.Errorf("edge index blob length %d is not a multiple of 16", len(b))
	}
	out := make([][2]int64, len(b)/16)
	for i := range out {
		out[i][0] = int64(binary.LittleEndian.Uint64(b[16*i:]))
		out[i][1] = int64(binary.LittleEndian.Uint64(b[16*i+8:]))
	}
	return out, nil
}
