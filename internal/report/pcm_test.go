package report

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodePCM16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{-1, -32768},
		{1, 32767},
		{2, 32767},
		{-3, -32768},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		b := EncodePCM16([]float32{tt.in})
		got := int16(binary.LittleEndian.Uint16(b))
		if got != tt.want {
			t.Errorf("EncodePCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPCMBlob(t *testing.T) {
	blob := PCMBlob([]float32{0, 0.5})
	if blob.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime = %q", blob.MIMEType)
	}
	raw, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(raw, []byte{0x00, 0x00, 0x00, 0x40}) {
		t.Errorf("pcm = %x", raw)
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []float32{0.25, -1})

	got, err := DecodeFloat32LE(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != 0.25 || got[1] != -1 {
		t.Errorf("samples = %v", got)
	}

	if _, err := DecodeFloat32LE([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated frame")
	}
}
