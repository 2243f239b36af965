//go:build tinygo

//go:generate tinygo flash -target=arduino

package main

import (
	"machine"
	"time"

	"github.com/itohio/godaq/pkg/daq"
)

var uart = machine.UART0

// tenBit adapts a TinyGo ADC (16-bit scaled) to 10-bit counts.
type tenBit struct {
	adc machine.ADC
}

func (a tenBit) Get() uint16 {
	return a.adc.Get() >> ADC_SHIFT
}

// bootClock measures monotonic time since power-up.
type bootClock struct {
	origin time.Time
}

func (c bootClock) Now() time.Duration {
	return time.Since(c.origin)
}

func main() {
	origin := time.Now()

	// Configure analog inputs
	machine.InitADC()
	pins := [daq.NumChannels]machine.Pin{PIN_A0, PIN_A1, PIN_A2, PIN_A3}
	var channels [daq.NumChannels]daq.ADC
	for i, pin := range pins {
		adc := machine.ADC{Pin: pin}
		adc.Configure(machine.ADCConfig{})
		channels[i] = tenBit{adc: adc}
	}

	PIN_STATUS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := daq.NewIndicator(PIN_STATUS)

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	m := daq.New(daq.Config{
		Channels: channels,
		Calibration: daq.Calibration{
			VRef:   ADC_REFERENCE_V,
			RawMax: ADC_RAW_MAX,
		},
		Interval:    SAMPLE_INTERVAL,
		Duration:    RECORDING_DURATION,
		Input:       uart,
		Output:      uart,
		Clock:       bootClock{origin: origin},
		Diagnostics: led,
	})

	// Give the host time to open the port before announcing ourselves
	time.Sleep(SETTLE_DELAY)
	m.Boot()

	// Main loop
	for {
		m.Tick()
		time.Sleep(TICK_SLEEP)
	}
}
