// Package daq is the device side of the four-channel DAQ: a fixed-rate sampler
// and a line-oriented handshake driven by a single cooperative tick function.
//
// Nothing in this package allocates after New, blocks, or starts goroutines,
// so it runs unchanged under TinyGo on a microcontroller and inside the host
// side simulator. A Machine is not safe for concurrent use: Boot and Tick must
// be called from one loop.
package daq

import (
	"io"
	"time"
)

// State is the session state.
type State uint8

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Session is the state of the current (or last) recording.
type Session struct {
	State State
	Start time.Duration
	Last  time.Duration
	Count uint32
}

// Diagnostics receives events that the protocol itself keeps silent about.
// All methods are called from the tick loop and must return quickly.
type Diagnostics interface {
	TokenDiscarded()
	ChannelSaturated(mask uint8)
	SessionStarted()
	SessionCompleted(samples uint32)
}

// Config wires a Machine to its hardware.
type Config struct {
	Channels    [NumChannels]ADC
	Calibration Calibration
	Interval    time.Duration
	Duration    time.Duration

	Input       ByteReader
	Output      io.Writer
	Clock       Clock
	Diagnostics Diagnostics // optional
}

// Machine is the session state machine. It owns the session and sequences the
// interpreter, governor and sampler once per Tick.
type Machine struct {
	sampler     *Sampler
	governor    Governor
	interpreter *Interpreter
	out         io.Writer
	clock       Clock
	diag        Diagnostics

	session Session
	booted  bool

	sample Sample
	frame  [frameBufferSize]byte
}

// New creates an idle machine.
func New(cfg Config) *Machine {
	return &Machine{
		sampler:     NewSampler(cfg.Channels, cfg.Calibration),
		governor:    NewGovernor(cfg.Interval, cfg.Duration),
		interpreter: NewInterpreter(cfg.Input),
		out:         cfg.Output,
		clock:       cfg.Clock,
		diag:        cfg.Diagnostics,
	}
}

// Boot emits the one-time ready frame. The caller is expected to have waited
// for the inputs and the link to settle. Calls after the first are no-ops.
func (m *Machine) Boot() {
	if m.booted {
		return
	}
	m.booted = true
	m.emitString(FrameReady)
}

// Tick runs one pass of the scheduling loop: handle at most one command, then
// either end the session or take a sample if one is due.
func (m *Machine) Tick() {
	now := m.clock.Now()

	switch m.interpreter.Poll() {
	case TokenStart:
		m.start(now)
	case TokenStop:
		if m.session.State == Recording {
			m.complete()
			return
		}
	case TokenUnknown:
		if m.diag != nil {
			m.diag.TokenDiscarded()
		}
	}

	if m.session.State != Recording {
		return
	}

	if m.governor.Expired(now, m.session.Start) {
		m.complete()
		return
	}
	if m.governor.ShouldSample(now, m.session.Start, m.session.Last) {
		m.takeSample(now)
	}
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session {
	return m.session
}

// State returns the current session state.
func (m *Machine) State() State {
	return m.session.State
}

// Discarded returns the number of unrecognized command lines seen so far.
func (m *Machine) Discarded() uint32 {
	return m.interpreter.Discarded()
}

func (m *Machine) start(now time.Duration) {
	if m.session.State == Recording {
		return
	}
	// stale bytes queued while idle must not leak into the session
	m.interpreter.Flush()

	m.session = Session{
		State: Recording,
		Start: now,
		Last:  now,
		Count: 0,
	}
	m.emitString(FrameHeader)
	m.emitString(FrameStarted)

	if m.diag != nil {
		m.diag.SessionStarted()
	}
}

func (m *Machine) takeSample(now time.Duration) {
	m.session.Last = now
	m.session.Count++

	m.sample.Seq = m.session.Count
	m.sample.Elapsed = now - m.session.Start
	saturated := m.sampler.ReadChannels(&m.sample.Volts)

	m.emit(AppendSample(m.frame[:0], &m.sample))

	if saturated != 0 && m.diag != nil {
		m.diag.ChannelSaturated(saturated)
	}
}

func (m *Machine) complete() {
	count := m.session.Count
	m.session.State = Idle

	m.emitString(FrameComplete)
	m.emit(AppendSamplesCollected(m.frame[:0], count))
	m.emitString(FrameEndOfData)

	if m.diag != nil {
		m.diag.SessionCompleted(count)
	}
}

func (m *Machine) emitString(frame string) {
	m.emit(append(m.frame[:0], frame...))
}

// emit writes one frame. Transport errors are not handled; the host's read
// timeout is the only backstop.
func (m *Machine) emit(frame []byte) {
	if m.out == nil {
		return
	}
	frame = append(frame, '\n')
	m.out.Write(frame)
}
