package device

import (
	"fmt"
	"log"
	"sync"

	"github.com/itohio/godaq/pkg/protocol"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the reference link rate of the DAQ firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the frames channel buffer.
	// A 5 s session at 2 ms produces up to 2500 frames; the recorder drains
	// the channel continuously, so this only has to absorb bursts.
	DefaultBufferSize = 1024
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the DAQ over a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	obs      Observer

	conn      serial.Port
	stream    *stream
	mu        sync.RWMutex
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		stream:   newStream(bufSize, nil),
	}
}

// SetObserver sets the observer used from the next Connect on.
func (d *Serial) SetObserver(obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.obs = obs
}

// Ports returns a list of available serial ports, with USB product names
// where the platform provides them.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil && len(details) > 0 {
		result := make([]Port, 0, len(details))
		for _, p := range details {
			desc := p.Name
			if p.IsUSB {
				desc = fmt.Sprintf("%s [%s:%s]", p.Product, p.VID, p.PID)
			}
			result = append(result, Port{Name: p.Name, Description: desc})
		}
		return result, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port, drops anything queued before the open and
// starts reading frames. Opening the port usually resets the board, so the
// next frame expected is the ready announcement.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		log.Printf("Error flushing serial input: %v", err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		log.Printf("Error flushing serial output: %v", err)
	}

	d.conn = port
	d.stream = newStream(d.bufSize, d.obs)
	d.connected = true

	// Start reading frames in a goroutine
	go d.stream.run(port)

	return nil
}

// Close closes the port and waits for the reader to finish. The frames
// channel is closed once the reader has drained.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.stream.closing.Store(true)
	err := d.conn.Close()
	if err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	<-d.stream.done

	d.conn = nil
	d.connected = false
	return err
}

// Frames returns the channel of parsed frames for the current connection.
func (d *Serial) Frames() <-chan protocol.Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stream.frames
}

// Send writes a command line to the device.
func (d *Serial) Send(cmd protocol.Command) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := d.conn.Write(cmd.Bytes()); err != nil {
		return fmt.Errorf("failed to send %s command: %w", cmd, err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
