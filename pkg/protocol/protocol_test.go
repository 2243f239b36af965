package protocol

import (
	"testing"
	"time"

	"github.com/itohio/godaq/pkg/daq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Frame
		wantErr bool
	}{
		{
			name: "ready",
			line: "ARDUINO_DAQ_READY",
			want: Frame{Kind: KindReady, Raw: "ARDUINO_DAQ_READY"},
		},
		{
			name: "ready with CR",
			line: "ARDUINO_DAQ_READY\r",
			want: Frame{Kind: KindReady, Raw: "ARDUINO_DAQ_READY"},
		},
		{
			name: "header",
			line: "Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)",
			want: Frame{Kind: KindHeader, Raw: daq.FrameHeader},
		},
		{
			name: "started",
			line: "RECORDING_STARTED",
			want: Frame{Kind: KindStarted, Raw: "RECORDING_STARTED"},
		},
		{
			name: "complete",
			line: "RECORDING_COMPLETE",
			want: Frame{Kind: KindComplete, Raw: "RECORDING_COMPLETE"},
		},
		{
			name: "samples collected",
			line: "SAMPLES_COLLECTED:2500",
			want: Frame{Kind: KindSamplesCollected, Count: 2500, Raw: "SAMPLES_COLLECTED:2500"},
		},
		{
			name: "end of data",
			line: "END_OF_DATA",
			want: Frame{Kind: KindEndOfData, Raw: "END_OF_DATA"},
		},
		{
			name: "data",
			line: "7,14,0.000,2.502,5.000,1.002",
			want: Frame{
				Kind: KindData,
				Sample: Sample{
					Seq:     7,
					Elapsed: 14 * time.Millisecond,
					Volts:   [daq.NumChannels]float64{0, 2.502, 5, 1.002},
				},
				Fields: []string{"7", "14", "0.000", "2.502", "5.000", "1.002"},
				Raw:    "7,14,0.000,2.502,5.000,1.002",
			},
		},
		{name: "empty", line: "  ", wantErr: true},
		{name: "bad count", line: "SAMPLES_COLLECTED:x", wantErr: true},
		{name: "too few fields", line: "1,2,0.1,0.2,0.3", wantErr: true},
		{name: "too many fields", line: "1,2,0.1,0.2,0.3,0.4,0.5", wantErr: true},
		{name: "bad seq", line: "a,2,0.1,0.2,0.3,0.4", wantErr: true},
		{name: "negative elapsed", line: "1,-2,0.1,0.2,0.3,0.4", wantErr: true},
		{name: "bad voltage", line: "1,2,0.1,x,0.3,0.4", wantErr: true},
		{name: "truncated frame", line: "RECORDING_COMP", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_RoundTripFromCore(t *testing.T) {
	cal := daq.DefaultCalibration()
	s := daq.Sample{
		Seq:     3,
		Elapsed: 6 * time.Millisecond,
		Volts:   [daq.NumChannels]float32{cal.Volts(512), cal.Volts(1023), cal.Volts(0), cal.Volts(100)},
	}

	f, err := Parse(string(daq.AppendSample(nil, &s)))
	require.NoError(t, err)
	assert.Equal(t, KindData, f.Kind)
	assert.Equal(t, uint32(3), f.Sample.Seq)
	assert.Equal(t, 6*time.Millisecond, f.Sample.Elapsed)
	assert.Equal(t, [daq.NumChannels]float64{2.502, 5, 0, 0.489}, f.Sample.Volts)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"Sample", "Time(ms)", "A0(V)", "A1(V)", "A2(V)", "A3(V)"}, Columns)
}

func TestCommand_Bytes(t *testing.T) {
	assert.Equal(t, []byte("START\n"), Start.Bytes())
	assert.Equal(t, []byte("STOP\n"), Stop.Bytes())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "data", KindData.String())
	assert.Equal(t, "ARDUINO_DAQ_READY", KindReady.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
