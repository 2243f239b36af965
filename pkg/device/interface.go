package device

import "github.com/itohio/godaq/pkg/protocol"

// Device defines the interface for DAQ devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan protocol.Frame
	Send(cmd protocol.Command) error
	IsConnected() bool
}

// Observer is told about lines and frames the device could not deliver.
// *metrics.Metrics satisfies it.
type Observer interface {
	LineDiscarded()
	FrameDropped()
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
