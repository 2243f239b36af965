package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/itohio/godaq/pkg/protocol"
)

var (
	// ErrNotConnected is returned when sending to a closed device.
	ErrNotConnected = errors.New("not connected")
	// ErrReadyTimeout is returned when the device never announced itself.
	ErrReadyTimeout = errors.New("timed out waiting for " + protocol.KindReady.String())
	// ErrClosed is returned when the frame stream ended unexpectedly.
	ErrClosed = errors.New("device closed")
)

type nopObserver struct{}

func (nopObserver) LineDiscarded() {}
func (nopObserver) FrameDropped()  {}

// stream turns the byte stream coming from a device into parsed frames.
type stream struct {
	frames  chan protocol.Frame
	obs     Observer
	closing atomic.Bool
	done    chan struct{}
}

func newStream(bufSize int, obs Observer) *stream {
	if obs == nil {
		obs = nopObserver{}
	}
	return &stream{
		frames: make(chan protocol.Frame, bufSize),
		obs:    obs,
		done:   make(chan struct{}),
	}
}

// run reads lines until r fails, then closes the frames channel.
func (s *stream) run(r io.Reader) {
	defer close(s.done)
	defer close(s.frames)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in frame reader: %v", r)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, err := protocol.Parse(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			s.obs.LineDiscarded()
			continue
		}

		// Send frame to channel (non-blocking)
		select {
		case s.frames <- frame:
		default:
			log.Printf("Frames channel full, dropping %s frame", frame.Kind)
			s.obs.FrameDropped()
		}
	}

	if err := scanner.Err(); err != nil && !s.closing.Load() {
		log.Printf("Error reading from device: %v", err)
	}
}

// WaitReady consumes frames until the device announces itself.
func WaitReady(ctx context.Context, frames <-chan protocol.Frame, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w after %s", ErrReadyTimeout, timeout)
		case f, ok := <-frames:
			if !ok {
				return ErrClosed
			}
			if f.Kind == protocol.KindReady {
				return nil
			}
		}
	}
}
