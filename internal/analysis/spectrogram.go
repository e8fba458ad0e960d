package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrTooShort      = errors.New("recording shorter than one analysis window")
	ErrShapeMismatch = errors.New("spectrogram frequency bins differ")
)

const (
	// WindowLength is the segment and FFT length.
	WindowLength = 256
	// consecutive segments share an eighth of a window
	windowOverlap = WindowLength / 8
	tukeyAlpha    = 0.25
)

// Spectrogram is a one-sided power spectrum per analysis segment. Frames are
// indexed [segment][frequency bin].
type Spectrogram struct {
	Frequencies []float64
	Times       []float64
	Frames      [][]float64
}

// Bins is the number of frequency bins per frame.
func (s Spectrogram) Bins() int {
	return len(s.Frequencies)
}

// Size is the number of values in the spectrogram.
func (s Spectrogram) Size() int {
	return len(s.Frames) * s.Bins()
}

// Duration is the time of the centre of the last segment.
func (s Spectrogram) Duration() float64 {
	if len(s.Times) == 0 {
		return 0
	}
	return s.Times[len(s.Times)-1]
}

// Compute splits the signal into Tukey-windowed segments of WindowLength
// samples overlapping by WindowLength/8, removes each segment's mean and
// returns its power spectrum scaled so a pure tone's peak reads as its power.
func Compute(sig Signal) (Spectrogram, error) {
	if len(sig.Samples) < WindowLength {
		return Spectrogram{}, fmt.Errorf("%w: %d samples", ErrTooShort, len(sig.Samples))
	}
	if sig.SampleRate <= 0 {
		return Spectrogram{}, fmt.Errorf("invalid sample rate %d", sig.SampleRate)
	}

	window := tukeyWindow(WindowLength, tukeyAlpha)
	windowSum := floats.Sum(window)
	scale := 1 / (windowSum * windowSum)

	step := WindowLength - windowOverlap
	segments := (len(sig.Samples) - windowOverlap) / step
	bins := WindowLength/2 + 1
	fs := float64(sig.SampleRate)

	spec := Spectrogram{
		Frequencies: make([]float64, bins),
		Times:       make([]float64, segments),
		Frames:      make([][]float64, segments),
	}
	for k := range spec.Frequencies {
		spec.Frequencies[k] = float64(k) * fs / WindowLength
	}

	fft := fourier.NewFFT(WindowLength)
	segment := make([]float64, WindowLength)
	coeffs := make([]complex128, bins)
	for i := 0; i < segments; i++ {
		start := i * step
		copy(segment, sig.Samples[start:start+WindowLength])
		mean := floats.Sum(segment) / WindowLength
		for j := range segment {
			segment[j] = (segment[j] - mean) * window[j]
		}
		coeffs = fft.Coefficients(coeffs, segment)

		frame := make([]float64, bins)
		for k, c := range coeffs {
			p := cmplx.Abs(c)
			frame[k] = p * p * scale
			// fold negative frequencies, except DC and Nyquist
			if k != 0 && k != bins-1 {
				frame[k] *= 2
			}
		}
		spec.Frames[i] = frame
		spec.Times[i] = (float64(start) + WindowLength/2) / fs
	}
	return spec, nil
}

// tukeyWindow returns the periodic Tukey window of length n: a flat top with
// cosine tapers covering alpha of the window.
func tukeyWindow(n int, alpha float64) []float64 {
	// periodic windows are the symmetric window of length n+1 minus its last point
	m := n + 1
	w := make([]float64, n)
	width := int(math.Floor(alpha * float64(m-1) / 2))
	for i := range w {
		x := float64(i)
		switch {
		case i <= width:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-1+2*x/alpha/float64(m-1))))
		case i >= m-width-1:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-2/alpha+1+2*x/alpha/float64(m-1))))
		default:
			w[i] = 1
		}
	}
	return w
}

// Similarity scores how closely candidate matches reference: the size of the
// reference divided by the summed squared difference over the segments both
// share. Identical spectrograms score math.MaxFloat64.
func Similarity(candidate, reference Spectrogram) (float64, error) {
	if candidate.Bins() != reference.Bins() {
		return 0, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, candidate.Bins(), reference.Bins())
	}
	frames := min(len(candidate.Frames), len(reference.Frames))
	dist := 0.0
	for i := 0; i < frames; i++ {
		a, b := candidate.Frames[i], reference.Frames[i]
		for k := range a {
			d := a[k] - b[k]
			dist += d * d
		}
	}
	if dist == 0 {
		return math.MaxFloat64, nil
	}
	return math.Min(float64(reference.Size())/dist, math.MaxFloat64), nil
}
