// Package protocol parses the line-oriented frames a DAQ device sends and
// encodes the commands a host sends back.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/godaq/pkg/daq"
)

// Kind identifies a device frame.
type Kind int

const (
	KindData Kind = iota
	KindReady
	KindHeader
	KindStarted
	KindComplete
	KindSamplesCollected
	KindEndOfData
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindReady:
		return daq.FrameReady
	case KindHeader:
		return "header"
	case KindStarted:
		return daq.FrameStarted
	case KindComplete:
		return daq.FrameComplete
	case KindSamplesCollected:
		return "SAMPLES_COLLECTED"
	case KindEndOfData:
		return daq.FrameEndOfData
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Columns are the CSV column names announced by the header frame.
var Columns = strings.Split(daq.FrameHeader, ",")

// Sample is a parsed data frame.
type Sample struct {
	Seq     uint32
	Elapsed time.Duration
	Volts   [daq.NumChannels]float64
}

// Frame is one parsed line from the device.
type Frame struct {
	Kind   Kind
	Sample Sample   // KindData
	Fields []string // KindData: the raw comma-separated fields, as sent
	Count  uint32   // KindSamplesCollected
	Raw    string
}

// Parse parses a single line (without its terminator; surrounding whitespace
// is ignored).
func Parse(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	f := Frame{Raw: line}

	switch line {
	case "":
		return f, fmt.Errorf("empty line")
	case daq.FrameReady:
		f.Kind = KindReady
		return f, nil
	case daq.FrameHeader:
		f.Kind = KindHeader
		return f, nil
	case daq.FrameStarted:
		f.Kind = KindStarted
		return f, nil
	case daq.FrameComplete:
		f.Kind = KindComplete
		return f, nil
	case daq.FrameEndOfData:
		f.Kind = KindEndOfData
		return f, nil
	}

	if rest, ok := strings.CutPrefix(line, daq.FrameSamplesCollected); ok {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return f, fmt.Errorf("invalid sample count %q: %w", rest, err)
		}
		f.Kind = KindSamplesCollected
		f.Count = uint32(n)
		return f, nil
	}

	s, fields, err := parseSample(line)
	if err != nil {
		return f, err
	}
	f.Kind = KindData
	f.Sample = s
	f.Fields = fields
	return f, nil
}

// parseSample parses "<n>,<elapsed_ms>,<v0>,<v1>,<v2>,<v3>".
func parseSample(line string) (Sample, []string, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2+daq.NumChannels {
		return Sample{}, nil, fmt.Errorf("invalid data frame: expected %d comma-separated values, got %d", 2+daq.NumChannels, len(parts))
	}

	seq, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Sample{}, nil, fmt.Errorf("invalid sample number: %w", err)
	}

	elapsed, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Sample{}, nil, fmt.Errorf("invalid elapsed time: %w", err)
	}

	s := Sample{
		Seq:     uint32(seq),
		Elapsed: time.Duration(elapsed) * time.Millisecond,
	}
	for i := range daq.NumChannels {
		v, err := strconv.ParseFloat(parts[2+i], 64)
		if err != nil {
			return Sample{}, nil, fmt.Errorf("invalid voltage A%d: %w", i, err)
		}
		s.Volts[i] = v
	}
	return s, parts, nil
}

// Command is a host to device command.
type Command int

const (
	Start Command = iota
	Stop
)

func (c Command) String() string {
	if c == Stop {
		return daq.CommandStop
	}
	return daq.CommandStart
}

// Bytes returns the command line as sent on the wire.
func (c Command) Bytes() []byte {
	return []byte(c.String() + "\n")
}
