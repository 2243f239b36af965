package daq

// Switch is a digital output such as a GPIO pin.
type Switch interface {
	Set(high bool)
}

// Indicator drives a status light from Diagnostics events. The light is
// steady on while a session is recording. While idle it toggles on every
// discarded command.
type Indicator struct {
	out       Switch
	recording bool
	on        bool
}

// NewIndicator returns an Indicator with the light switched off.
func NewIndicator(out Switch) *Indicator {
	out.Set(false)
	return &Indicator{out: out}
}

func (i *Indicator) TokenDiscarded() {
	if i.recording {
		return
	}
	i.set(!i.on)
}

func (i *Indicator) ChannelSaturated(mask uint8) {}

func (i *Indicator) SessionStarted() {
	i.recording = true
	i.set(true)
}

func (i *Indicator) SessionCompleted(samples uint32) {
	i.recording = false
	i.set(false)
}

func (i *Indicator) set(on bool) {
	i.on = on
	i.out.Set(on)
}
