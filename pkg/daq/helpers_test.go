package daq

import (
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

type fixedADC uint16

func (a fixedADC) Get() uint16 { return uint16(a) }

// fakeInput is an in-memory UART receive buffer.
type fakeInput struct {
	data []byte
}

func (f *fakeInput) Buffered() int { return len(f.data) }

func (f *fakeInput) ReadByte() (byte, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	b := f.data[0]
	f.data = f.data[1:]
	return b, nil
}

func (f *fakeInput) send(s string) {
	f.data = append(f.data, s...)
}

// frameLog captures every frame written by a Machine, without terminators.
type frameLog struct {
	frames []string
}

func (l *frameLog) Write(p []byte) (int, error) {
	l.frames = append(l.frames, strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func (l *frameLog) since(i int) []string {
	return l.frames[i:]
}

type diagCounter struct {
	discarded int
	saturated []uint8
	started   int
	completed []uint32
}

func (d *diagCounter) TokenDiscarded()             { d.discarded++ }
func (d *diagCounter) ChannelSaturated(mask uint8) { d.saturated = append(d.saturated, mask) }
func (d *diagCounter) SessionStarted()             { d.started++ }
func (d *diagCounter) SessionCompleted(n uint32)   { d.completed = append(d.completed, n) }

type rig struct {
	clock *fakeClock
	in    *fakeInput
	out   *frameLog
	diag  *diagCounter
	m     *Machine
}

func newRig(interval, duration time.Duration, raw uint16) *rig {
	r := &rig{
		clock: &fakeClock{},
		in:    &fakeInput{},
		out:   &frameLog{},
		diag:  &diagCounter{},
	}
	r.m = New(Config{
		Channels:    [NumChannels]ADC{fixedADC(raw), fixedADC(raw), fixedADC(raw), fixedADC(raw)},
		Calibration: DefaultCalibration(),
		Interval:    interval,
		Duration:    duration,
		Input:       r.in,
		Output:      r.out,
		Clock:       r.clock,
		Diagnostics: r.diag,
	})
	return r
}

// runUntil ticks every step until the clock passes end.
func (r *rig) runUntil(end, step time.Duration) {
	for ; r.clock.now <= end; r.clock.now += step {
		r.m.Tick()
	}
}

type dataFrame struct {
	seq     uint64
	elapsed uint64
	volts   []string
}

func isDataFrame(frame string) bool {
	return frame != "" && frame[0] >= '0' && frame[0] <= '9'
}

func parseDataFrame(t *testing.T, frame string) dataFrame {
	t.Helper()
	parts := strings.Split(frame, ",")
	require.Len(t, parts, 2+NumChannels, "frame %q", frame)
	seq, err := strconv.ParseUint(parts[0], 10, 32)
	require.NoError(t, err)
	elapsed, err := strconv.ParseUint(parts[1], 10, 32)
	require.NoError(t, err)
	return dataFrame{seq: seq, elapsed: elapsed, volts: parts[2:]}
}

func dataFrames(t *testing.T, frames []string) []dataFrame {
	t.Helper()
	var out []dataFrame
	for _, f := range frames {
		if isDataFrame(f) {
			out = append(out, parseDataFrame(t, f))
		}
	}
	return out
}
