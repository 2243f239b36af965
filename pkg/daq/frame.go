package daq

import (
	"strconv"
	"time"
)

// Device to host frames. Each is written followed by a single '\n'.
const (
	FrameReady            = "ARDUINO_DAQ_READY"
	FrameHeader           = "Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)"
	FrameStarted          = "RECORDING_STARTED"
	FrameComplete         = "RECORDING_COMPLETE"
	FrameSamplesCollected = "SAMPLES_COLLECTED:"
	FrameEndOfData        = "END_OF_DATA"
)

// Host to device commands.
const (
	CommandStart = "START"
	CommandStop  = "STOP"
)

// VoltageDecimals is the number of decimals voltages are written with.
// Values are rounded to the nearest representable decimal (strconv semantics),
// so raw 512 of 1023 at 5 V is written as 2.502 and raw 1023 as 5.000.
const VoltageDecimals = 3

// frameBufferSize fits the longest data frame:
// "4294967295,4294967295,5.000,5.000,5.000,5.000\n".
const frameBufferSize = 64

// Sample is one governor-triggered reading. It lives only until it is encoded.
type Sample struct {
	Seq     uint32
	Elapsed time.Duration
	Volts   [NumChannels]float32
}

// AppendSample appends the data frame for s, without the line terminator.
func AppendSample(dst []byte, s *Sample) []byte {
	dst = strconv.AppendUint(dst, uint64(s.Seq), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(s.Elapsed/time.Millisecond), 10)
	for _, v := range s.Volts {
		dst = append(dst, ',')
		dst = AppendVolts(dst, v)
	}
	return dst
}

// AppendVolts appends v with VoltageDecimals decimals.
func AppendVolts(dst []byte, v float32) []byte {
	return strconv.AppendFloat(dst, float64(v), 'f', VoltageDecimals, 32)
}

// AppendSamplesCollected appends the "SAMPLES_COLLECTED:<n>" trailer frame.
func AppendSamplesCollected(dst []byte, n uint32) []byte {
	dst = append(dst, FrameSamplesCollected...)
	return strconv.AppendUint(dst, uint64(n), 10)
}
