package audioconv

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResampleLinearHalvesLength(t *testing.T) {
	in := make([]float32, 32000)
	for i := range in {
		in[i] = 0.5
	}
	out := ResampleLinear(in, 32000, 16000)
	if got, want := len(out), 16000; got != want {
		t.Fatalf("len=%d, want %d", got, want)
	}
	for i, v := range out {
		if math.Abs(float64(v)-0.5) > 1e-6 {
			t.Fatalf("out[%d]=%v, want 0.5", i, v)
		}
	}
}

func TestResampleLinearSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := ResampleLinear(in, 16000, 16000)
	if len(out) != 3 || out[0] != 0.1 || out[2] != 0.3 {
		t.Fatalf("out=%v", out)
	}
}

func TestDownmixInterleavedAverages(t *testing.T) {
	in := []float32{1, 0, 0.5, 0.5, -1, 1}
	out := DownmixInterleaved(in, 2)
	want := []float32{0.5, 0.5, 0}
	if len(out) != len(want) {
		t.Fatalf("len=%d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Fatalf("out[%d]=%v, want %v", i, out[i], want[i])
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.99, -0.99}
	b := Float32ToPCM16(in)
	if len(b) != len(in)*2 {
		t.Fatalf("bytes=%d, want %d", len(b), len(in)*2)
	}
	out := PCM16ToFloat32(b)
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32768 {
			t.Fatalf("out[%d]=%v, want ~%v", i, out[i], in[i])
		}
	}
}

func TestFloat32ToPCM16Clamps(t *testing.T) {
	b := Float32ToPCM16([]float32{2.0, -2.0})
	out := PCM16ToFloat32(b)
	if out[0] < 0.99 || out[1] > -0.99 {
		t.Fatalf("out=%v, want clamped to full scale", out)
	}
}

func TestWAVBytesRoundTripsThroughDecoder(t *testing.T) {
	// A 16 kHz sine written by WAVBytes should decode back unchanged.
	samples := make([]float32, TargetRate/10)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/TargetRate))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, WAVBytes(samples, TargetRate), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := DecodeFile(path, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(samples) {
		t.Fatalf("len=%d, want %d", len(out), len(samples))
	}
	for i := range samples {
		if math.Abs(float64(out[i]-samples[i])) > 2.0/32768 {
			t.Fatalf("sample %d drifted: got %v want %v", i, out[i], samples[i])
		}
	}
}

func TestWriteWAVFileDecodes(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.25}
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAVFile(path, samples, TargetRate); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := DecodeFile(path, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(samples) {
		t.Fatalf("len=%d, want %d", len(out), len(samples))
	}
}

func TestDecodeFileTruncatesAtMaxSamples(t *testing.T) {
	samples := make([]float32, TargetRate)
	path := filepath.Join(t.TempDir(), "long.wav")
	if err := os.WriteFile(path, WAVBytes(samples, TargetRate), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := DecodeFile(path, 100)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 100 {
		t.Fatalf("len=%d, want 100", len(out))
	}
}
