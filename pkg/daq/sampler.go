package daq

const (
	// NumChannels is the fixed number of analog inputs sampled per tick.
	NumChannels = 4

	// DefaultVRef is the voltage that a full-scale reading maps to (V).
	DefaultVRef = 5.0
	// DefaultRawMax is the full-scale reading of a 10-bit ADC.
	DefaultRawMax = 1023
)

// ADC is a single analog input. machine.ADC satisfies it on TinyGo targets.
type ADC interface {
	Get() uint16
}

// Calibration maps raw ADC counts to volts: voltage = raw * (VRef / RawMax).
type Calibration struct {
	VRef   float32
	RawMax uint16
}

// DefaultCalibration returns the 0..1023 -> 0.0..5.0 V mapping.
func DefaultCalibration() Calibration {
	return Calibration{VRef: DefaultVRef, RawMax: DefaultRawMax}
}

// Volts converts a raw reading. Readings above RawMax are clamped to RawMax.
func (c Calibration) Volts(raw uint16) float32 {
	if raw > c.RawMax {
		raw = c.RawMax
	}
	return float32(raw) * (c.VRef / float32(c.RawMax))
}

// Sampler reads all channels back to back and converts them to volts.
//
// There is no failure path: an unplugged or saturated input reads as its
// boundary value. Boundary hits are reported as a bitmask so callers can
// surface them without changing the wire protocol.
type Sampler struct {
	channels [NumChannels]ADC
	cal      Calibration
}

// NewSampler creates a sampler over a fixed set of channels.
func NewSampler(channels [NumChannels]ADC, cal Calibration) *Sampler {
	if cal.RawMax == 0 {
		cal.RawMax = DefaultRawMax
	}
	if cal.VRef == 0 {
		cal.VRef = DefaultVRef
	}
	return &Sampler{channels: channels, cal: cal}
}

// ReadChannels fills dst with calibrated voltages in channel order and returns
// a mask with bit i set when channel i read 0 or full scale.
func (s *Sampler) ReadChannels(dst *[NumChannels]float32) (saturated uint8) {
	for i, ch := range s.channels {
		var raw uint16
		if ch != nil {
			raw = ch.Get()
		}
		if raw == 0 || raw >= s.cal.RawMax {
			saturated |= 1 << i
		}
		dst[i] = s.cal.Volts(raw)
	}
	return saturated
}
