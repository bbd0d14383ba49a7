package slcan

import (
	"encoding/hex"
	"io"
	"strconv"

	"github.com/robotalks/us1.go/pkg/can"
)

const (
	cr  byte = '\r'
	bel byte = '\a'

	stdIDLen = 3
	extIDLen = 8
	tsLen    = 4
)

// bitrateCodes maps bitrates to the S<n> setup command.
var bitrateCodes = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// BitrateCommand returns the setup command for the bitrate.
func BitrateCommand(bitrate int) ([]byte, error) {
	code, ok := bitrateCodes[bitrate]
	if !ok {
		return nil, ErrUnsupportedBitrate
	}
	return []byte{'S', code, cr}, nil
}

// EncodeFrame encodes a frame into a transmit line.
func EncodeFrame(f can.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	cmd, idLen := byte('t'), stdIDLen
	if f.Extended {
		cmd, idLen = 'T', extIDLen
	}
	if f.Remote {
		cmd -= 't' - 'r'
	}
	b := make([]byte, 0, 1+idLen+1+len(f.Data)*2+1)
	b = append(b, cmd)
	b = appendHex(b, uint64(f.ID), idLen)
	b = append(b, '0'+byte(len(f.Data)))
	if !f.Remote {
		for _, d := range f.Data {
			b = appendHex(b, uint64(d), 2)
		}
	}
	return append(b, cr), nil
}

// WriteFrame encodes and writes the frame.
func WriteFrame(w io.Writer, f can.Frame) (int, error) {
	b, err := EncodeFrame(f)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

func appendHex(b []byte, v uint64, digits int) []byte {
	const hexDigits = "0123456789ABCDEF"
	for i := digits - 1; i >= 0; i-- {
		b = append(b, hexDigits[(v>>(uint(i)*4))&0xf])
	}
	return b
}

// decodeFrame decodes a received frame line without the CR.
func decodeFrame(line []byte) (f can.Frame, err error) {
	bad := func() (can.Frame, error) {
		return can.Frame{}, &SyntaxError{Line: string(line)}
	}
	if len(line) == 0 {
		return bad()
	}
	idLen := stdIDLen
	switch line[0] {
	case 't':
	case 'T':
		f.Extended, idLen = true, extIDLen
	case 'r':
		f.Remote = true
	case 'R':
		f.Extended, f.Remote, idLen = true, true, extIDLen
	default:
		return bad()
	}
	if len(line) < 1+idLen+1 {
		return bad()
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return bad()
	}
	f.ID = uint32(id)
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > can.MaxDataLen {
		return bad()
	}
	rest := line[1+idLen+1:]
	dataLen := dlc * 2
	if f.Remote {
		dataLen = 0
	}
	if len(rest) != dataLen && len(rest) != dataLen+tsLen {
		return bad()
	}
	if !f.Remote {
		f.Data = make([]byte, dlc)
		if _, err := hex.Decode(f.Data, rest[:dataLen]); err != nil {
			return bad()
		}
	}
	if err := f.Validate(); err != nil {
		return bad()
	}
	return f, nil
}
