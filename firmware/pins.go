//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Sampling configuration. The host's read timeout must exceed RECORDING_DURATION.
	SAMPLE_INTERVAL    = 2 * time.Millisecond
	RECORDING_DURATION = 5000 * time.Millisecond
	SETTLE_DELAY       = time.Second            // wait for the host to open the port after reset
	TICK_SLEEP         = 100 * time.Microsecond // yield between ticks without hurting 2ms timing

	// ADC configuration. Readings are reduced to 10 bits (0-1023) and mapped to 0-5V.
	ADC_REFERENCE_V = 5.0
	ADC_RAW_MAX     = 1023
	ADC_SHIFT       = 6 // machine.ADC.Get() is scaled to 16 bits

	// Analog input pins, in frame order
	PIN_A0 = machine.ADC0
	PIN_A1 = machine.ADC1
	PIN_A2 = machine.ADC2
	PIN_A3 = machine.ADC3

	// Status LED: on while recording, toggled on every discarded command while idle
	PIN_STATUS = machine.LED

	// Serial configuration
	// Data frame: "2500,5000,5.000,5.000,5.000,5.000\n" = ~35 bytes max per line
	// 500 frames/sec * 35 bytes/line = 17,500 bytes/sec
	// UART 8N1: 10 bits/byte = 175,000 baud would be needed for every frame at full rate;
	// at 115200 the link carries ~11,520 bytes/sec, so the effective rate settles
	// around 330 frames/sec while the governor keeps the 2ms minimum spacing.
	UART_BAUD_RATE = 115200
)
