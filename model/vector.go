package model

import (
	"math"

	"github.com/raipankaj/KoreDB/codec"
)

// EncodeVector renders v as the on-disk vector value layout spec.md §6
// fixes: {stored_magnitude:f32_le, v0, v1, ..., v_{d-1}:f32_le}.
func EncodeVector(v []float32) []byte {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	mag := float32(math.Sqrt(sum))

	out := make([]byte, 4+4*len(v))
	codec.PutFloat32(out[0:4], mag)
	for i, x := range v {
		codec.PutFloat32(out[4+i*4:4+i*4+4], x)
	}
	return out
}

// DecodeVector parses the on-disk vector value layout (spec.md §9: readers
// must use the stored magnitude rather than recomputing it). ok is false
// if raw is too short or its length isn't 4 + 4*d for an integer d.
func DecodeVector(raw []byte) (vector []float32, magnitude float32, ok bool) {
	if len(raw) < 4 || (len(raw)-4)%4 != 0 {
		return nil, 0, false
	}
	magnitude = codec.Float32(raw[0:4])
	d := (len(raw) - 4) / 4
	vector = make([]float32, d)
	for i := 0; i < d; i++ {
		vector[i] = codec.Float32(raw[4+i*4 : 4+i*4+4])
	}
	return vector, magnitude, true
}
