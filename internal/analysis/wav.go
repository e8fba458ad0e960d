// Package analysis compares sounds through their spectrograms.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid wav file")

// Signal is a mono recording. Samples keep the raw PCM amplitude of the
// source file; multi-channel files are averaged down to one channel.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration is the recording length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// ReadWAV decodes a PCM WAV file.
func ReadWAV(path string) (Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Signal{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, path, err)
	}
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = float64(sum) / float64(channels)
	}
	return Signal{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

// WriteWAV encodes a mono signal as 16-bit PCM. Samples are rounded and
// clipped to the 16-bit range.
func WriteWAV(path string, s Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, s.SampleRate, 16, 1, 1)
	data := make([]int, len(s.Samples))
	for i, v := range s.Samples {
		data[i] = int(math.Round(min(max(v, -32768), 32767)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: s.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
