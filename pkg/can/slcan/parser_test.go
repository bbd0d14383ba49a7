package slcan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/us1.go/pkg/can"
)

func frameResult(f can.Frame) ParseResult {
	return ParseResult{Frame: &f}
}

func syntaxErr(line string) ParseResult {
	return ParseResult{Err: &SyntaxError{Line: line}}
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name   string
		in     string
		expect []ParseResult
	}{
		{
			name:   "command ack",
			in:     "\r",
			expect: []ParseResult{{Ack: true}},
		},
		{
			name:   "adapter error",
			in:     "\a",
			expect: []ParseResult{{Err: ErrAdapter}},
		},
		{
			name:   "transmit ack",
			in:     "z\rZ\r",
			expect: []ParseResult{{Ack: true}, {Ack: true}},
		},
		{
			name:   "measurement frame",
			in:     "t3113133412\r",
			expect: []ParseResult{frameResult(can.Frame{ID: 0x311, Data: []byte{0x13, 0x34, 0x12}})},
		},
		{
			name:   "frame with timestamp",
			in:     "t31111FFEA60\r",
			expect: []ParseResult{frameResult(can.Frame{ID: 0x311, Data: []byte{0xff}})},
		},
		{
			name:   "extended frame",
			in:     "T01ABCDEF200ff\r",
			expect: []ParseResult{frameResult(can.Frame{ID: 0x1abcdef, Extended: true, Data: []byte{0x00, 0xff}})},
		},
		{
			name:   "remote frame",
			in:     "r3112\r",
			expect: []ParseResult{frameResult(can.Frame{ID: 0x311, Remote: true})},
		},
		{
			name:   "frames back to back",
			in:     "t3110\rt313113\r",
			expect: []ParseResult{frameResult(can.Frame{ID: 0x311, Data: []byte{}}), frameResult(can.Frame{ID: 0x313, Data: []byte{0x13}})},
		},
		{
			name:   "bad length",
			in:     "t311213\r",
			expect: []ParseResult{syntaxErr("t311213")},
		},
		{
			name:   "bad hex",
			in:     "t31x0\r",
			expect: []ParseResult{syntaxErr("t31x0")},
		},
		{
			name:   "id out of range",
			in:     "t9000\r",
			expect: []ParseResult{syntaxErr("t9000")},
		},
		{
			name:   "ignored reply",
			in:     "V1013\r",
			expect: []ParseResult{{}},
		},
		{
			name:   "bell drops partial line",
			in:     "t31\at3110\r",
			expect: []ParseResult{{Err: ErrAdapter}, frameResult(can.Frame{ID: 0x311, Data: []byte{}})},
		},
		{
			name: "overlong line resyncs",
			in:   "t" + strings.Repeat("0", 40) + "\rt3110\r",
			expect: []ParseResult{
				syntaxErr("t" + strings.Repeat("0", maxLineLen-1) + "..."),
				frameResult(can.Frame{ID: 0x311, Data: []byte{}}),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var parser Parser
			var results []ParseResult
			for i := 0; i < len(tc.in); i++ {
				pr := parser.Parse(tc.in[i])
				if c := tc.in[i]; c == '\r' || c == '\a' {
					results = append(results, pr)
				} else {
					require.Equalf(t, ParseResult{}, pr, "byte[%d] unexpected result", i)
				}
			}
			require.Equal(t, tc.expect, results)
		})
	}
}
