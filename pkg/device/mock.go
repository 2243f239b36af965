package device

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/daq"
	"github.com/itohio/godaq/pkg/protocol"
)

const defaultTickInterval = 500 * time.Microsecond

// Mock simulates a DAQ board by running the real device core against
// synthetic analog inputs, with an in-memory link in place of the UART.
type Mock struct {
	cfg  *config.Config
	obs  Observer
	diag daq.Diagnostics

	stream    *stream
	inbox     *inbox
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Mock{
		cfg:    cfg,
		stream: newStream(DefaultBufferSize, nil),
	}
}

// SetObserver sets the host side observer used from the next Connect on.
func (m *Mock) SetObserver(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = obs
}

// SetDiagnostics sets the hook handed to the simulated core on the next Connect.
func (m *Mock) SetDiagnostics(diag daq.Diagnostics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diag = diag
}

// Connect powers up the simulated board. It announces itself right away.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	m.inbox = &inbox{}
	m.stream = newStream(DefaultBufferSize, m.obs)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.connected = true

	go m.stream.run(pr)
	go m.run(ctx, m.newMachine(pw), pw)

	return nil
}

// Close powers the simulated board down and waits until the frames channel
// has been closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.stream.closing.Store(true)
	m.cancel()
	<-m.done
	<-m.stream.done
	m.connected = false

	return nil
}

// Frames returns the channel of parsed frames for the current connection.
func (m *Mock) Frames() <-chan protocol.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stream.frames
}

// Send queues a command line in the simulated UART receive buffer.
func (m *Mock) Send(cmd protocol.Command) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}

	_, err := m.inbox.Write(cmd.Bytes())
	return err
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) newMachine(out io.Writer) *daq.Machine {
	clock := monotonic{origin: time.Now()}
	cal := daq.Calibration{
		VRef:   float32(m.cfg.ADC.VRef),
		RawMax: m.cfg.ADC.RawMax,
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6461715f6d6f636b))

	var channels [daq.NumChannels]daq.ADC
	for i := range channels {
		channels[i] = &waveADC{
			clock:     clock,
			cal:       cal,
			amplitude: float32(m.cfg.Mock.Amplitude),
			frequency: float32(m.cfg.Mock.FrequencyHz) * float32(i+1),
			phase:     float32(i) * math32.Pi / 4,
			noise:     float32(m.cfg.Mock.NoiseLevel),
			rng:       rng,
		}
	}

	return daq.New(daq.Config{
		Channels:    channels,
		Calibration: cal,
		Interval:    m.cfg.Session.SampleInterval,
		Duration:    m.cfg.Session.Duration,
		Input:       m.inbox,
		Output:      out,
		Clock:       clock,
		Diagnostics: m.diag,
	})
}

// run is the simulated firmware main loop. It is the only goroutine touching
// the machine.
func (m *Mock) run(ctx context.Context, machine *daq.Machine, out *io.PipeWriter) {
	defer close(m.done)
	defer out.Close()

	interval := m.cfg.Mock.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	machine.Boot()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			machine.Tick()
		}
	}
}

// monotonic is a daq.Clock over the host's monotonic clock.
type monotonic struct {
	origin time.Time
}

func (c monotonic) Now() time.Duration {
	return time.Since(c.origin)
}

// waveADC produces a noisy sine around mid scale.
type waveADC struct {
	clock     daq.Clock
	cal       daq.Calibration
	amplitude float32
	frequency float32
	phase     float32
	noise     float32
	rng       *rand.Rand
}

func (a *waveADC) Get() uint16 {
	t := float32(a.clock.Now().Seconds())
	v := a.cal.VRef/2 + a.amplitude*math32.Sin(2*math32.Pi*a.frequency*t+a.phase)
	if a.noise > 0 {
		v += a.noise * (2*a.rng.Float32() - 1)
	}
	return voltsToRaw(v, a.cal)
}

// voltsToRaw is the inverse of daq.Calibration.Volts, clamped to the ADC range.
func voltsToRaw(v float32, cal daq.Calibration) uint16 {
	raw := math32.Floor(v/cal.VRef*float32(cal.RawMax) + 0.5)
	if raw < 0 {
		return 0
	}
	if raw > float32(cal.RawMax) {
		return cal.RawMax
	}
	return uint16(raw)
}

// inbox is the simulated UART receive buffer. The host writes to it while the
// machine goroutine polls it.
type inbox struct {
	mu  sync.Mutex
	buf []byte
}

func (b *inbox) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *inbox) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *inbox) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	c := b.buf[0]
	b.buf = b.buf[1:]
	return c, nil
}
