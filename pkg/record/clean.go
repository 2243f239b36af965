package record

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/itohio/godaq/pkg/daq"
)

var dataRow = regexp.MustCompile(`^\d+,\d+,\d+\.\d+,\d+\.\d+,\d+\.\d+,\d+\.\d+$`)

// IsDataRow reports whether line looks like a data row. Besides the strict
// pattern it accepts any line with six fields starting with a digit.
func IsDataRow(line string) bool {
	if dataRow.MatchString(line) {
		return true
	}
	return strings.Count(line, ",") == 1+daq.NumChannels && line != "" && line[0] >= '0' && line[0] <= '9'
}

// CleanName returns the path Clean writes for src.
func CleanName(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "_clean.csv"
}

// Clean copies the header and the data rows of src to a sibling
// "<name>_clean.csv" and returns its path. Console chatter captured in the file
// is dropped; a missing header is put back in front of the first row.
func Clean(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	var (
		kept   []string
		header bool
	)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.Contains(line, "Sample,Time"):
			kept = append(kept, line)
			header = true
		case IsDataRow(line):
			kept = append(kept, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", src, err)
	}

	if !header && len(kept) > 0 {
		kept = append([]string{daq.FrameHeader}, kept...)
	}

	dst := CleanName(src)
	var sb strings.Builder
	for _, line := range kept {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(dst, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return dst, nil
}
