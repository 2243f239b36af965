package filter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/godaq/pkg/protocol"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	timeColumn     = "Time(ms)"
	filteredSuffix = "_filtered"
)

// ErrNoData is returned when a file has no usable rows.
var ErrNoData = errors.New("no numeric rows")

// SampleRate estimates the sample rate in Hz from timestamps in milliseconds
// as 1000 over the median spacing. For an even number of spacings the median
// is the mean of the two middle values.
func SampleRate(timesMs []float64) (float64, error) {
	if len(timesMs) < 2 {
		return 0, fmt.Errorf("need at least 2 timestamps, got %d", len(timesMs))
	}

	diffs := make([]float64, len(timesMs)-1)
	for i := range diffs {
		diffs[i] = timesMs[i+1] - timesMs[i]
	}
	sort.Float64s(diffs)

	n := len(diffs)
	median := diffs[n/2]
	if n%2 == 0 {
		median = stat.Mean(diffs[n/2-1:n/2+1], nil)
	}
	if median <= 0 {
		return 0, fmt.Errorf("median sample spacing is %g ms", median)
	}
	return 1000 / median, nil
}

// table is a CSV file with its numeric rows only.
type table struct {
	header []string
	rows   [][]string
	values [][]float64
}

func (t *table) column(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

func (t *table) series(col int) []float64 {
	out := make([]float64, len(t.values))
	for i, row := range t.values {
		out[i] = row[col]
	}
	return out
}

// load reads src keeping only rows where every field is a number. Lines
// before the header are skipped; a file without a header row gets the
// device's column names.
func load(src string) (*table, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	t := &table{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}

		vals, ok := numeric(rec)
		if t.header == nil {
			switch {
			case ok:
				t.header = append([]string(nil), protocol.Columns...)
			case isHeader(rec):
				t.header = rec
				continue
			default:
				continue
			}
		}
		if !ok || len(rec) != len(t.header) {
			continue
		}
		t.rows = append(t.rows, rec)
		t.values = append(t.values, vals)
	}

	if len(t.rows) == 0 {
		return nil, fmt.Errorf("%s: %w", src, ErrNoData)
	}
	return t, nil
}

func isHeader(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) == timeColumn {
			return true
		}
	}
	return false
}

func numeric(rec []string) ([]float64, bool) {
	vals := make([]float64, len(rec))
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func voltageColumns(t *table) (names []string, idx []int) {
	for _, name := range protocol.Columns[2:] {
		if i := t.column(name); i >= 0 {
			names = append(names, name)
			idx = append(idx, i)
		}
	}
	return names, idx
}

// FilteredName returns the path File writes for src.
func FilteredName(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + filteredSuffix + ".csv"
}

// File low-pass filters every voltage column of the session file src and
// writes "<name>_filtered.csv" next to it with an extra "<column>_filtered"
// column per channel. Non-numeric rows are dropped. It returns the new path.
func File(src string, cutoffHz float64, order int) (string, error) {
	t, err := load(src)
	if err != nil {
		return "", err
	}

	ti := t.column(timeColumn)
	if ti < 0 {
		return "", fmt.Errorf("%s: missing %s column", src, timeColumn)
	}
	fs, err := SampleRate(t.series(ti))
	if err != nil {
		return "", fmt.Errorf("%s: %w", src, err)
	}

	flt, err := Butterworth(order, cutoffHz, fs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", src, err)
	}

	names, idx := voltageColumns(t)
	filtered := make([][]float64, len(idx))
	for c, i := range idx {
		filtered[c] = flt.FiltFilt(t.series(i))
	}

	dst := FilteredName(src)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	header := append([]string(nil), t.header...)
	for _, name := range names {
		header = append(header, name+filteredSuffix)
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}

	for r, row := range t.rows {
		rec := append([]string(nil), row...)
		for c := range filtered {
			rec = append(rec, strconv.FormatFloat(filtered[c][r], 'f', 6, 64))
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", dst, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return dst, nil
}

// Summary describes a session file.
type Summary struct {
	Samples    int
	Duration   time.Duration
	SampleRate float64 // samples over duration, in Hz
	MinVolts   float64
	MaxVolts   float64
}

// Summarize reads a session file and reports its extent and voltage range.
func Summarize(src string) (Summary, error) {
	t, err := load(src)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Samples: len(t.rows)}

	if ti := t.column(timeColumn); ti >= 0 {
		times := t.series(ti)
		span := floats.Max(times) - floats.Min(times)
		s.Duration = time.Duration(span * float64(time.Millisecond))
		if span > 0 {
			s.SampleRate = float64(s.Samples) / (span / 1000)
		}
	}

	_, idx := voltageColumns(t)
	for n, i := range idx {
		v := t.series(i)
		lo, hi := floats.Min(v), floats.Max(v)
		if n == 0 || lo < s.MinVolts {
			s.MinVolts = lo
		}
		if n == 0 || hi > s.MaxVolts {
			s.MaxVolts = hi
		}
	}
	return s, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("Duration: %.1f ms, Samples: %d, Sample rate: %.1f Hz, Voltage: %.3f - %.3f V",
		float64(s.Duration)/float64(time.Millisecond), s.Samples, s.SampleRate, s.MinVolts, s.MaxVolts)
}
