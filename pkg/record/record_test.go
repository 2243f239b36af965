package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/daq"
	"github.com/itohio/godaq/pkg/device"
	"github.com/itohio/godaq/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2024, 5, 17, 14, 3, 9, 0, time.UTC)

type eventLog struct {
	rows       int
	timeouts   int
	mismatches int
	sessions   []time.Duration
}

func (e *eventLog) RowRecorded()                    { e.rows++ }
func (e *eventLog) Timeout()                        { e.timeouts++ }
func (e *eventLog) CountMismatch()                  { e.mismatches++ }
func (e *eventLog) SessionRecorded(d time.Duration) { e.sessions = append(e.sessions, d) }

func newTestRecorder(t *testing.T, timeout time.Duration) (*Recorder, *eventLog) {
	t.Helper()
	rec := New(t.TempDir(), timeout)
	rec.now = func() time.Time { return sessionStart }
	events := &eventLog{}
	rec.SetObserver(events)
	return rec, events
}

// feed parses lines into a buffered channel, optionally closing it.
func feed(t *testing.T, closeAfter bool, lines ...string) chan protocol.Frame {
	t.Helper()
	frames := make(chan protocol.Frame, len(lines))
	for _, line := range lines {
		f, err := protocol.Parse(line)
		require.NoError(t, err, line)
		frames <- f
	}
	if closeAfter {
		close(frames)
	}
	return frames
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "arduino_daq_data_20240517_140309.csv", FileName(sessionStart))
}

func TestNew_Defaults(t *testing.T) {
	rec := New("", 0)
	assert.Equal(t, ".", rec.dir)
	assert.Equal(t, DefaultTimeout, rec.timeout)
}

func TestRecord_Session(t *testing.T) {
	rec, events := newTestRecorder(t, time.Second)

	frames := feed(t, false,
		daq.FrameHeader,
		daq.FrameStarted,
		"1,2,2.502,0.000,5.000,1.000",
		"2,4,2.600,0.000,5.000,1.100",
		daq.FrameComplete,
		"SAMPLES_COLLECTED:2",
		daq.FrameEndOfData,
	)

	res, err := rec.Record(context.Background(), frames)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(rec.dir, "arduino_daq_data_20240517_140309.csv"), res.Path)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, uint32(2), res.Reported)
	assert.True(t, res.Counted)
	assert.True(t, res.Complete)

	assert.Equal(t, []string{
		daq.FrameHeader,
		"1,2,2.502,0.000,5.000,1.000",
		"2,4,2.600,0.000,5.000,1.100",
	}, readLines(t, res.Path))

	assert.Equal(t, 2, events.rows)
	assert.Equal(t, 0, events.mismatches)
	assert.Len(t, events.sessions, 1)
}

func TestRecord_IgnoresRowsAfterComplete(t *testing.T) {
	rec, _ := newTestRecorder(t, time.Second)

	frames := feed(t, false,
		"1,2,1.000,1.000,1.000,1.000",
		daq.FrameComplete,
		"2,4,1.000,1.000,1.000,1.000",
		"SAMPLES_COLLECTED:1",
		daq.FrameEndOfData,
	)

	res, err := rec.Record(context.Background(), frames)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Len(t, readLines(t, res.Path), 2)
}

func TestRecord_CountMismatch(t *testing.T) {
	rec, events := newTestRecorder(t, time.Second)

	frames := feed(t, false,
		"1,2,1.000,1.000,1.000,1.000",
		daq.FrameComplete,
		"SAMPLES_COLLECTED:3",
		daq.FrameEndOfData,
	)

	res, err := rec.Record(context.Background(), frames)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSampleCountMismatch)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Rows)
	assert.FileExists(t, res.Path)
	assert.Equal(t, 1, events.mismatches)
}

func TestRecord_Timeout(t *testing.T) {
	rec, events := newTestRecorder(t, 30*time.Millisecond)

	frames := feed(t, false, "1,2,1.000,1.000,1.000,1.000")

	res, err := rec.Record(context.Background(), frames)
	assert.ErrorIs(t, err, ErrTimeout)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Rows)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{daq.FrameHeader, "1,2,1.000,1.000,1.000,1.000"}, readLines(t, res.Path))
	assert.Equal(t, 1, events.timeouts)
}

func TestRecord_StreamClosed(t *testing.T) {
	rec, _ := newTestRecorder(t, time.Second)

	res, err := rec.Record(context.Background(), feed(t, true, daq.FrameStarted))
	assert.ErrorIs(t, err, ErrClosed)
	require.NotNil(t, res)
	assert.False(t, res.Complete)
}

func TestRecord_Cancelled(t *testing.T) {
	rec, _ := newTestRecorder(t, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rec.Record(ctx, make(chan protocol.Frame))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecord_SameSecondGetsNewFile(t *testing.T) {
	rec, _ := newTestRecorder(t, time.Second)

	first, err := rec.Record(context.Background(), feed(t, false, daq.FrameEndOfData))
	require.NoError(t, err)
	second, err := rec.Record(context.Background(), feed(t, false, daq.FrameEndOfData))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, "arduino_daq_data_20240517_140309_1.csv", filepath.Base(second.Path))
}

func TestAcquire_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Duration = 40 * time.Millisecond
	cfg.Mock.TickInterval = 200 * time.Microsecond

	dev := device.NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()
	require.NoError(t, device.WaitReady(context.Background(), dev.Frames(), time.Second))

	rec := New(t.TempDir(), 5*time.Second)
	res, err := Acquire(context.Background(), dev, rec)
	require.NoError(t, err)

	assert.True(t, res.Complete)
	assert.Greater(t, res.Rows, 0)
	assert.Equal(t, int(res.Reported), res.Rows)

	lines := readLines(t, res.Path)
	assert.Equal(t, daq.FrameHeader, lines[0])
	for _, line := range lines[1:] {
		assert.True(t, IsDataRow(line), line)
	}
}

func TestAcquire_NotConnected(t *testing.T) {
	_, err := Acquire(context.Background(), device.NewMock(nil), New(t.TempDir(), 0))
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestDrain(t *testing.T) {
	row := "1,2,1.000,1.000,1.000,1.000"

	tests := []struct {
		name        string
		frames      chan protocol.Frame
		cancel      bool
		wantDropped int
		wantLeft    int
	}{
		{"stops at end of data", feed(t, false, row, daq.FrameComplete, "SAMPLES_COLLECTED:1", daq.FrameEndOfData, daq.FrameStarted), false, 4, 1},
		{"stops when quiet", feed(t, false, row, row), false, 2, 0},
		{"stops when closed", feed(t, true, row), false, 1, 0},
		{"stops when cancelled", make(chan protocol.Frame), true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := newTestRecorder(t, time.Second)
			rec.quiet = 20 * time.Millisecond

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			assert.Equal(t, tt.wantDropped, rec.drain(ctx, tt.frames))
			assert.Len(t, tt.frames, tt.wantLeft)
		})
	}
}

// scriptedDevice hands every START to a script that plays the board's side.
type scriptedDevice struct {
	frames chan protocol.Frame
	starts chan struct{}
}

func newScriptedDevice() *scriptedDevice {
	return &scriptedDevice{
		frames: make(chan protocol.Frame),
		starts: make(chan struct{}, 4),
	}
}

func (d *scriptedDevice) Connect() error                  { return nil }
func (d *scriptedDevice) Close() error                    { return nil }
func (d *scriptedDevice) Frames() <-chan protocol.Frame   { return d.frames }
func (d *scriptedDevice) IsConnected() bool               { return true }
func (d *scriptedDevice) Send(cmd protocol.Command) error { d.starts <- struct{}{}; return nil }

func (d *scriptedDevice) emit(t *testing.T, lines ...string) {
	for _, line := range lines {
		f, err := protocol.Parse(line)
		if !assert.NoError(t, err, line) {
			return
		}
		d.frames <- f
	}
}

func TestAcquire_TimeoutDrainsLateSession(t *testing.T) {
	dev := newScriptedDevice()
	rec, _ := newTestRecorder(t, 100*time.Millisecond)
	rec.quiet = time.Second

	done := make(chan struct{})
	go func() {
		defer close(done)

		<-dev.starts
		dev.emit(t, daq.FrameHeader, daq.FrameStarted, "1,2,1.000,1.000,1.000,1.000")
		time.Sleep(150 * time.Millisecond)
		dev.emit(t, "2,4,1.000,1.000,1.000,1.000", daq.FrameComplete, "SAMPLES_COLLECTED:2", daq.FrameEndOfData)

		<-dev.starts
		dev.emit(t, daq.FrameHeader, daq.FrameStarted,
			"1,2,3.000,3.000,3.000,3.000",
			daq.FrameComplete, "SAMPLES_COLLECTED:1", daq.FrameEndOfData)
	}()

	first, err := Acquire(context.Background(), dev, rec)
	assert.ErrorIs(t, err, ErrTimeout)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Rows)

	second, err := Acquire(context.Background(), dev, rec)
	require.NoError(t, err)
	assert.True(t, second.Complete)
	assert.Equal(t, 1, second.Rows)
	assert.Equal(t, uint32(1), second.Reported)
	assert.Equal(t, []string{daq.FrameHeader, "1,2,3.000,3.000,3.000,3.000"}, readLines(t, second.Path))

	<-done
}
