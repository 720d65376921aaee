package audio

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := SampleRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
	if FrameSamples != FrameSize*Channels {
		t.Errorf("FrameSamples = %d, want %d", FrameSamples, FrameSize*Channels)
	}
	if FrameBytes != FrameSamples*2 {
		t.Errorf("FrameBytes = %d, want %d", FrameBytes, FrameSamples*2)
	}
}

func TestTicks(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{20 * time.Millisecond, 1},
		{21 * time.Millisecond, 2},
		{time.Second, 50},
	}
	for _, tt := range tests {
		if got := Ticks(tt.d); got != tt.want {
			t.Errorf("Ticks(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

// --- Smoothstep ---

func TestSmoothstepBoundaries(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		got := Smoothstep(tt.input)
		if got != tt.want {
			t.Errorf("Smoothstep(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSmoothstepMonotonic(t *testing.T) {
	prev := 0.0
	for i := 1; i <= 100; i++ {
		x := float64(i) / 100.0
		val := Smoothstep(x)
		if val < prev {
			t.Errorf("Smoothstep not monotonic: f(%v)=%v < f(%v)=%v", x, val, float64(i-1)/100.0, prev)
		}
		prev = val
	}
}

// --- CrossfadeFrames ---

func TestCrossfadeAllOutgoing(t *testing.T) {
	out := []int16{1000, -1000, 500, -500}
	in := []int16{2000, -2000, 1500, -1500}
	result := CrossfadeFrames(out, in, 0)
	for i, v := range result {
		if v != out[i] {
			t.Errorf("At progress=0 sample[%d] = %d, want %d (all outgoing)", i, v, out[i])
		}
	}
}

func TestCrossfadeAllIncoming(t *testing.T) {
	out := []int16{1000, -1000, 500, -500}
	in := []int16{2000, -2000, 1500, -1500}
	result := CrossfadeFrames(out, in, 1)
	for i, v := range result {
		if v != in[i] {
			t.Errorf("At progress=1 sample[%d] = %d, want %d (all incoming)", i, v, in[i])
		}
	}
}

func TestCrossfadeMidpoint(t *testing.T) {
	out := []int16{1000, -1000}
	in := []int16{3000, -3000}
	result := CrossfadeFrames(out, in, 0.5)
	for i, want := range []int16{2000, -2000} {
		if result[i] != want {
			t.Errorf("At progress=0.5 sample[%d] = %d, want %d", i, result[i], want)
		}
	}
}

func TestCrossfadeUnevenLengths(t *testing.T) {
	result := CrossfadeFrames(nil, []int16{1000, 1000}, 0.5)
	if len(result) != 2 {
		t.Fatalf("len = %d, want 2", len(result))
	}
	if result[0] != 500 {
		t.Errorf("Silence-padded outgoing: got %d, want 500", result[0])
	}
}

// --- BlendImages ---

func TestBlendImages(t *testing.T) {
	bounds := image.Rect(0, 0, 2, 2)
	black := image.NewRGBA(bounds)
	white := image.NewRGBA(bounds)
	for i := range white.Pix {
		white.Pix[i] = 255
	}

	if got := BlendImages(bounds, black, white, 0).RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("progress=0 pixel = %v, want outgoing", got)
	}
	if got := BlendImages(bounds, black, white, 1).RGBAAt(1, 1); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("progress=1 pixel = %v, want incoming", got)
	}
	mid := BlendImages(bounds, black, white, 0.5).RGBAAt(0, 1)
	if mid.R != 128 || mid.A != 128 {
		t.Errorf("progress=0.5 pixel = %v, want half", mid)
	}
}

func TestBlendImagesPartialCoverage(t *testing.T) {
	bounds := image.Rect(0, 0, 4, 2)
	// incoming only covers the right half and sits at a non-zero origin
	incoming := image.NewRGBA(image.Rect(2, 0, 6, 2))
	for i := range incoming.Pix {
		incoming.Pix[i] = 200
	}

	got := BlendImages(bounds, nil, incoming, 1)
	if got.Bounds() != bounds {
		t.Fatalf("Bounds = %v, want %v", got.Bounds(), bounds)
	}
	if c := got.RGBAAt(1, 1); c != (color.RGBA{}) {
		t.Errorf("Uncovered pixel = %v, want transparent", c)
	}
	if c := got.RGBAAt(3, 0); c != (color.RGBA{200, 200, 200, 200}) {
		t.Errorf("Covered pixel = %v, want incoming", c)
	}
}

func TestBlendImagesNeverOverflows(t *testing.T) {
	bounds := image.Rect(0, 0, 1, 1)
	white := image.NewRGBA(bounds)
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1} {
		if c := BlendImages(bounds, white, white, p).RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
			t.Errorf("progress=%v white over white = %v, want white", p, c)
		}
	}
}

func TestBlendImagesNil(t *testing.T) {
	if BlendImages(image.Rect(0, 0, 1, 1), nil, nil, 0.5) != nil {
		t.Error("Blending two nil images should return nil")
	}
}

// --- Resample / channel mapping ---

func TestResampleSameRate(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := Resample(in, 48000, 48000)
	if &out[0] != &in[0] {
		t.Error("Same-rate resample should return input unchanged")
	}
}

func TestResampleDoubles(t *testing.T) {
	in := []int16{0, 0, 100, -100}
	out := Resample(in, 24000, 48000)
	if len(out) != 8 {
		t.Fatalf("len = %d, want 8", len(out))
	}
	// midpoint between frame 0 and frame 1
	if out[2] != 50 || out[3] != -50 {
		t.Errorf("Interpolated frame = [%d %d], want [50 -50]", out[2], out[3])
	}
}

func TestToStereo(t *testing.T) {
	mono := toStereo([]int16{7, 9}, 1)
	want := []int16{7, 7, 9, 9}
	for i, v := range want {
		if mono[i] != v {
			t.Errorf("mono[%d] = %d, want %d", i, mono[i], v)
		}
	}
	quad := toStereo([]int16{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	if len(quad) != 4 || quad[2] != 5 || quad[3] != 6 {
		t.Errorf("quad down-mix = %v, want [1 2 5 6]", quad)
	}
}

// --- AppendSamples ---

func TestAppendSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	prefix := []byte{0xAA}
	buf := AppendSamples(prefix, samples)
	if len(buf) != 1+len(samples)*2 || buf[0] != 0xAA {
		t.Fatalf("AppendSamples length = %d, want prefix plus %d", len(buf), len(samples)*2)
	}
	buf = buf[1:]

	// 256 = 0x0100 -> bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}

	back := bytesToSamples(buf)
	for i, v := range samples {
		if back[i] != v {
			t.Errorf("Round-trip sample[%d]: got %d, want %d", i, back[i], v)
		}
	}
}

// --- DecodeFile ---

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeWAVStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := make([]int, FrameSamples)
	for i := range data {
		data[i] = 1000
	}
	writeWAV(t, path, SampleRate, 2, data)

	samples, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(samples) != FrameSamples {
		t.Fatalf("Decoded %d samples, want %d", len(samples), FrameSamples)
	}
	if samples[0] != 1000 || samples[len(samples)-1] != 1000 {
		t.Errorf("Decoded values = %d..%d, want 1000", samples[0], samples[len(samples)-1])
	}
}

func TestDecodeWAVMonoUpmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, SampleRate, 1, []int{10, 20, 30})

	samples, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	want := []int16{10, 10, 20, 20, 30, 30}
	if len(samples) != len(want) {
		t.Fatalf("Decoded %d samples, want %d", len(samples), len(want))
	}
	for i, v := range want {
		if samples[i] != v {
			t.Errorf("sample[%d] = %d, want %d", i, samples[i], v)
		}
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile(path); err == nil {
		t.Error("DecodeFile on garbage should fail")
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Error("DecodeFile on missing file should fail")
	}
}
