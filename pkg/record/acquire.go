package record

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/itohio/godaq/pkg/device"
	"github.com/itohio/godaq/pkg/protocol"
)

// Acquire runs one session on a connected, ready device: it sends START and
// records the reply. After a timeout the rest of the session is read and
// discarded so the next Acquire starts on a quiet stream.
func Acquire(ctx context.Context, dev device.Device, rec *Recorder) (*Result, error) {
	if !dev.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := dev.Send(protocol.Start); err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}
	res, err := rec.Record(ctx, dev.Frames())
	if errors.Is(err, ErrTimeout) {
		if n := rec.drain(ctx, dev.Frames()); n > 0 {
			log.Printf("Discarded %d frames left over from the timed out session", n)
		}
	}
	return res, err
}
