package report

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dukerupert/prometna/internal/ai"
)

// EncodePCM16 converts float samples in [-1, 1] to 16-bit little-endian PCM.
// Out of range samples are clamped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := float64(s) * 32768
		switch {
		case math.IsNaN(v):
			v = 0
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// PCMBlob wraps samples as a Live API audio blob.
func PCMBlob(samples []float32) ai.Blob {
	return ai.Blob{
		MIMEType: ai.PCMMIMEType,
		Data:     base64.StdEncoding.EncodeToString(EncodePCM16(samples)),
	}
}

// DecodeFloat32LE reads the raw Float32Array bytes a browser sends.
func DecodeFloat32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("audio frame length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
