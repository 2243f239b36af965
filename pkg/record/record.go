// Package record writes DAQ sessions to CSV files and tidies them up afterwards.
package record

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/itohio/godaq/pkg/protocol"
)

const (
	// DefaultTimeout bounds a whole session on the host side.
	DefaultTimeout = 15 * time.Second
	// DefaultQuiet is how long the stream must stay silent before a timed
	// out session is considered over.
	DefaultQuiet = 500 * time.Millisecond

	filePrefix = "arduino_daq_data_"
	timeLayout = "20060102_150405"
)

var (
	// ErrTimeout is returned when END_OF_DATA did not arrive in time.
	ErrTimeout = errors.New("session timed out")
	// ErrSampleCountMismatch is returned when SAMPLES_COLLECTED disagrees with
	// the rows received. The file is kept.
	ErrSampleCountMismatch = errors.New("sample count mismatch")
	// ErrClosed is returned when the frame stream ended mid session.
	ErrClosed = errors.New("frame stream closed")
)

// Observer receives recorder events.
type Observer interface {
	RowRecorded()
	Timeout()
	CountMismatch()
	SessionRecorded(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) RowRecorded()                  {}
func (nopObserver) Timeout()                      {}
func (nopObserver) CountMismatch()                {}
func (nopObserver) SessionRecorded(time.Duration) {}

// Result describes a recorded session.
type Result struct {
	Path     string
	Rows     int
	Reported uint32 // value of SAMPLES_COLLECTED, if it arrived
	Counted  bool   // whether SAMPLES_COLLECTED arrived
	Complete bool   // whether END_OF_DATA arrived
	Duration time.Duration
}

// Recorder writes one CSV file per session.
type Recorder struct {
	dir     string
	timeout time.Duration
	quiet   time.Duration
	obs     Observer
	now     func() time.Time
}

// New creates a recorder writing into dir. A zero timeout means DefaultTimeout.
func New(dir string, timeout time.Duration) *Recorder {
	if dir == "" {
		dir = "."
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recorder{
		dir:     dir,
		timeout: timeout,
		quiet:   DefaultQuiet,
		obs:     nopObserver{},
		now:     time.Now,
	}
}

// SetObserver sets the event observer. nil restores the no-op observer.
func (r *Recorder) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	r.obs = obs
}

// FileName returns the session file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + ".csv"
}

// Record consumes frames of one session until END_OF_DATA and writes the data
// rows to a new file. Rows arriving after RECORDING_COMPLETE are not written.
//
// A non-nil Result is returned whenever the file was created, also together
// with ErrTimeout, ErrClosed or ErrSampleCountMismatch, so partial sessions
// stay on disk.
func (r *Recorder) Record(ctx context.Context, frames <-chan protocol.Frame) (*Result, error) {
	started := r.now()

	f, path, err := r.create(started)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Result{Path: path}
	w := csv.NewWriter(f)
	if err := w.Write(protocol.Columns); err != nil {
		return res, fmt.Errorf("failed to write header: %w", err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	err = r.consume(ctx, frames, timer.C, w, res)

	w.Flush()
	if ferr := w.Error(); ferr != nil && err == nil {
		err = fmt.Errorf("failed to write %s: %w", path, ferr)
	}
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}

	res.Duration = r.now().Sub(started)
	r.obs.SessionRecorded(res.Duration)

	if err == nil && res.Counted && int(res.Reported) != res.Rows {
		r.obs.CountMismatch()
		err = fmt.Errorf("%w: device reported %d, recorded %d", ErrSampleCountMismatch, res.Reported, res.Rows)
	}
	return res, err
}

func (r *Recorder) consume(ctx context.Context, frames <-chan protocol.Frame, timeout <-chan time.Time, w *csv.Writer, res *Result) error {
	completed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			r.obs.Timeout()
			return fmt.Errorf("%w after %s with %d rows", ErrTimeout, r.timeout, res.Rows)
		case frame, ok := <-frames:
			if !ok {
				return ErrClosed
			}

			switch frame.Kind {
			case protocol.KindData:
				if completed {
					log.Printf("Ignoring data frame after %s: %s", protocol.KindComplete, frame.Raw)
					continue
				}
				if err := w.Write(frame.Fields); err != nil {
					return fmt.Errorf("failed to write row %d: %w", res.Rows+1, err)
				}
				res.Rows++
				r.obs.RowRecorded()
			case protocol.KindComplete:
				completed = true
			case protocol.KindSamplesCollected:
				res.Reported = frame.Count
				res.Counted = true
			case protocol.KindEndOfData:
				res.Complete = true
				return nil
			case protocol.KindReady:
				log.Printf("Device restarted during session")
			}
		}
	}
}

// drain discards frames left over from a session that timed out. It returns
// after END_OF_DATA, after the stream stays quiet for r.quiet, or once r.timeout
// has passed, and reports how many frames were dropped.
func (r *Recorder) drain(ctx context.Context, frames <-chan protocol.Frame) int {
	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()
	quiet := time.NewTimer(r.quiet)
	defer quiet.Stop()

	dropped := 0
	for {
		select {
		case <-ctx.Done():
			return dropped
		case <-deadline.C:
			return dropped
		case <-quiet.C:
			return dropped
		case frame, ok := <-frames:
			if !ok {
				return dropped
			}
			dropped++
			if frame.Kind == protocol.KindEndOfData {
				return dropped
			}
			quiet.Reset(r.quiet)
		}
	}
}

// create opens a new session file, adding a counter when a file for the same
// second already exists.
func (r *Recorder) create(t time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := FileName(t)
	for i := 1; ; i++ {
		path := filepath.Join(r.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) || i > 99 {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		name = fmt.Sprintf("%s%s_%d.csv", filePrefix, t.Format(timeLayout), i)
	}
}
