package daq

import "bytes"

// lineBufferSize bounds a single command line. Longer lines are truncated and
// classified as unknown.
const lineBufferSize = 32

// Token is a control token received from the host.
type Token uint8

const (
	// TokenNone means no complete line was available this tick.
	TokenNone Token = iota
	// TokenStart begins a recording session.
	TokenStart
	// TokenStop ends a running session early.
	TokenStop
	// TokenUnknown is any other non-empty line. It is discarded.
	TokenUnknown
)

func (t Token) String() string {
	switch t {
	case TokenNone:
		return "none"
	case TokenStart:
		return CommandStart
	case TokenStop:
		return CommandStop
	default:
		return "unknown"
	}
}

var (
	startBytes = []byte(CommandStart)
	stopBytes  = []byte(CommandStop)
)

// ByteReader is a non-blocking byte source. machine.UART satisfies it.
type ByteReader interface {
	// Buffered returns the number of bytes that can be read without blocking.
	Buffered() int
	ReadByte() (byte, error)
}

// Interpreter assembles newline-terminated command lines from a ByteReader
// without blocking. Partial lines are kept between polls.
type Interpreter struct {
	in ByteReader

	buf      [lineBufferSize]byte
	pos      int
	overflow bool

	discarded uint32
}

// NewInterpreter creates an interpreter reading from in.
func NewInterpreter(in ByteReader) *Interpreter {
	return &Interpreter{in: in}
}

// Poll consumes buffered input until a line completes or the input runs dry.
// Bytes after a completed line stay buffered for the next poll.
func (p *Interpreter) Poll() Token {
	if p.in == nil {
		return TokenNone
	}
	for p.in.Buffered() > 0 {
		b, err := p.in.ReadByte()
		if err != nil {
			return TokenNone
		}

		if b == '\n' || b == '\r' {
			tok := p.classify()
			p.reset()
			if tok == TokenNone {
				// empty line, e.g. the second half of "\r\n"
				continue
			}
			return tok
		}

		if p.pos == 0 && (b == ' ' || b == '\t') {
			continue
		}

		if p.pos < len(p.buf) {
			p.buf[p.pos] = b
			p.pos++
		} else {
			p.overflow = true
		}
	}
	return TokenNone
}

// Flush drops the partial line and every byte still waiting in the input.
func (p *Interpreter) Flush() {
	p.reset()
	if p.in == nil {
		return
	}
	for p.in.Buffered() > 0 {
		if _, err := p.in.ReadByte(); err != nil {
			return
		}
	}
}

// Discarded returns how many non-empty lines were not recognized.
func (p *Interpreter) Discarded() uint32 {
	return p.discarded
}

func (p *Interpreter) classify() Token {
	line := bytes.TrimSpace(p.buf[:p.pos])
	switch {
	case len(line) == 0 && !p.overflow:
		return TokenNone
	case p.overflow:
		// truncated, cannot be trusted
	case bytes.Equal(line, startBytes):
		return TokenStart
	case bytes.Equal(line, stopBytes):
		return TokenStop
	}
	p.discarded++
	return TokenUnknown
}

func (p *Interpreter) reset() {
	p.pos = 0
	p.overflow = false
}
