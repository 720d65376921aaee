package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeFile decodes an audio file to raw PCM int16 samples.
// WAV and MP3 are decoded in-process; everything else goes through FFmpeg.
// Returns interleaved stereo samples at 48kHz.
func DecodeFile(path string) ([]int16, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".mp3":
		return decodeMP3(path)
	}
	return decodeFFmpeg(path)
}

func decodeWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if dec == nil || !dec.IsValidFile() {
		return nil, fmt.Errorf("wav: %s is not a valid wav file", path)
	}

	// load all data at once
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case depth == 8:
			// 8 bit wav is unsigned
			samples[i] = int16((v - 128) << 8)
		case depth > 16:
			samples[i] = int16(v >> (depth - 16))
		default:
			samples[i] = int16(v)
		}
	}

	stereo := toStereo(samples, int(dec.NumChans))
	return Resample(stereo, int(dec.SampleRate), SampleRate), nil
}

func decodeMP3(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	// the decoded stream is always 16bit little endian stereo, even for
	// single channel sources
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	return Resample(bytesToSamples(out), dec.SampleRate(), SampleRate), nil
}

func decodeFFmpeg(path string) ([]int16, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	return bytesToSamples(out), nil
}

func bytesToSamples(buf []byte) []int16 {
	// Ensure even byte count for int16 alignment
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}

	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples
}

// toStereo up-mixes mono and drops channels beyond the first two.
func toStereo(samples []int16, channels int) []int16 {
	if channels == Channels || channels <= 0 {
		return samples
	}

	frames := len(samples) / channels
	out := make([]int16, frames*Channels)
	for i := 0; i < frames; i++ {
		l := samples[i*channels]
		r := l
		if channels > 1 {
			r = samples[i*channels+1]
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out
}

// Resample converts interleaved stereo samples between sample rates using
// linear interpolation.
func Resample(samples []int16, from, to int) []int16 {
	if from == to || from <= 0 || to <= 0 || len(samples) < Channels {
		return samples
	}

	inFrames := len(samples) / Channels
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]int16, outFrames*Channels)

	step := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		k := j + 1
		if k >= inFrames {
			k = inFrames - 1
		}
		for c := 0; c < Channels; c++ {
			a := float64(samples[j*Channels+c])
			b := float64(samples[k*Channels+c])
			out[i*Channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// AppendSamples appends samples to dst as little-endian s16 bytes, the raw
// PCM layout encoders read from a pipe.
func AppendSamples(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
