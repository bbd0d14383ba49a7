package slcan

import "github.com/robotalks/us1.go/pkg/can"

// maxLineLen covers an extended frame with 8 data bytes and a timestamp.
const maxLineLen = 1 + extIDLen + 1 + can.MaxDataLen*2 + tsLen

// Parser parses bytes received from the adapter.
type Parser struct {
	line     [maxLineLen]byte
	n        int
	overflow bool
}

// ParseResult indicates the result after one parsing step.
// At most one of the fields is set.
type ParseResult struct {
	Frame *can.Frame
	Ack   bool
	Err   error
}

// Reset drops a partially received line.
func (p *Parser) Reset() {
	p.n, p.overflow = 0, false
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch b {
	case cr:
		line, overflow := p.line[:p.n], p.overflow
		defer p.Reset()
		if overflow {
			pr.Err = &SyntaxError{Line: string(line) + "..."}
			return
		}
		return parseLine(line)
	case bel:
		p.Reset()
		pr.Err = ErrAdapter
	default:
		if p.n >= len(p.line) {
			p.overflow = true
			return
		}
		p.line[p.n] = b
		p.n++
	}
	return
}

func parseLine(line []byte) (pr ParseResult) {
	if len(line) == 0 {
		pr.Ack = true
		return
	}
	switch line[0] {
	case 'z', 'Z':
		pr.Ack = true
	case 't', 'T', 'r', 'R':
		f, err := decodeFrame(line)
		if err != nil {
			pr.Err = err
		} else {
			pr.Frame = &f
		}
	}
	// other replies (version, serial number, status flags) are ignored.
	return
}
