// Package filter implements the zero-phase low-pass filtering applied to
// recorded sessions.
package filter

import (
	"fmt"
	"math"
)

const (
	// DefaultOrder gives 24 dB/octave.
	DefaultOrder = 4
	// DefaultCutoff in Hz.
	DefaultCutoff = 2.0
)

// Section is one second order section in direct form II transposed. A first
// order section has B2 and A2 zero. A0 is normalized to 1.
type Section struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DCGain returns the section gain at 0 Hz.
func (s Section) DCGain() float64 {
	return (s.B0 + s.B1 + s.B2) / (1 + s.A1 + s.A2)
}

// Filter is a cascade of sections.
type Filter struct {
	Order    int
	Sections []Section
}

// Butterworth designs a digital low-pass Butterworth filter of the given
// order using the bilinear transform with the cutoff prewarped.
func Butterworth(order int, cutoffHz, sampleRateHz float64) (*Filter, error) {
	if order < 1 {
		return nil, fmt.Errorf("filter order must be at least 1, got %d", order)
	}
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRateHz)
	}
	wn := cutoffHz / (sampleRateHz / 2)
	if wn <= 0 || wn >= 1 {
		return nil, fmt.Errorf("normalized cutoff %g out of range (0, 1): cutoff %g Hz, sample rate %g Hz", wn, cutoffHz, sampleRateHz)
	}

	k := math.Tan(math.Pi * cutoffHz / sampleRateHz)
	kk := k * k

	f := &Filter{Order: order}
	for i := 0; i < order/2; i++ {
		alpha := 2 * math.Sin(float64(2*i+1)*math.Pi/float64(2*order))
		norm := 1 / (1 + alpha*k + kk)
		b0 := kk * norm
		f.Sections = append(f.Sections, Section{
			B0: b0,
			B1: 2 * b0,
			B2: b0,
			A1: 2 * (kk - 1) * norm,
			A2: (1 - alpha*k + kk) * norm,
		})
	}
	if order%2 == 1 {
		b0 := k / (1 + k)
		f.Sections = append(f.Sections, Section{
			B0: b0,
			B1: b0,
			A1: (k - 1) / (1 + k),
		})
	}
	return f, nil
}

// Apply runs the filter forward over x starting from rest.
func (f *Filter) Apply(x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for _, s := range f.Sections {
		var z1, z2 float64
		s.run(y, &z1, &z2)
	}
	return y
}

// FiltFilt runs the filter forward and backward, which cancels the phase
// shift and squares the magnitude response. The signal is extended at both
// ends by odd reflection and the state starts in steady state for the edge
// value, which keeps the ends from ringing.
func (f *Filter) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n < 2 {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	pad := 3 * (f.Order + 1)
	if pad > n-1 {
		pad = n - 1
	}

	ext := make([]float64, 0, n+2*pad)
	for i := pad; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-pad; i-- {
		ext = append(ext, 2*x[n-1]-x[i])
	}

	f.steady(ext)
	reverse(ext)
	f.steady(ext)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[pad:pad+n])
	return out
}

// steady filters y in place with each section's state primed for a constant
// input equal to y[0].
func (f *Filter) steady(y []float64) {
	level := y[0]
	for _, s := range f.Sections {
		g := s.DCGain()
		z1 := (g - s.B0) * level
		z2 := (s.B2 - s.A2*g) * level
		s.run(y, &z1, &z2)
		level *= g
	}
}

func (s Section) run(y []float64, z1, z2 *float64) {
	for i, x := range y {
		out := s.B0*x + *z1
		*z1 = s.B1*x - s.A1*out + *z2
		*z2 = s.B2*x - s.A2*out
		y[i] = out
	}
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
