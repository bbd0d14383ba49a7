package slcan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/us1.go/pkg/can"
)

func TestEncodeFrame(t *testing.T) {
	testCases := []struct {
		name   string
		frame  can.Frame
		expect string
	}{
		{"no data", can.Frame{ID: 0x310}, "t3100\r"},
		{"start command", can.Frame{ID: 0x310, Data: []byte{0x10}}, "t310110\r"},
		{"full data", can.Frame{ID: 0x7ff, Data: []byte{1, 2, 3, 4, 5, 6, 7, 0xab}}, "t7FF801020304050607AB\r"},
		{"extended", can.Frame{ID: 0x1abcdef, Extended: true, Data: []byte{0xff}}, "T01ABCDEF1FF\r"},
		{"remote", can.Frame{ID: 0x123, Remote: true, Data: []byte{0, 0}}, "r1232\r"},
		{"extended remote", can.Frame{ID: 0x123, Extended: true, Remote: true}, "R000001230\r"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := EncodeFrame(tc.frame)
			require.NoError(t, err)
			require.Equal(t, tc.expect, string(b))

			var buf bytes.Buffer
			n, err := WriteFrame(&buf, tc.frame)
			require.NoError(t, err)
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.expect, buf.String())
		})
	}
}

func TestEncodeFrameInvalid(t *testing.T) {
	_, err := EncodeFrame(can.Frame{ID: 0x800})
	require.Equal(t, can.ErrInvalidID, err)
	_, err = EncodeFrame(can.Frame{ID: 1, Data: make([]byte, 9)})
	require.Equal(t, can.ErrDataTooLong, err)
}

func TestBitrateCommand(t *testing.T) {
	cmd, err := BitrateCommand(250000)
	require.NoError(t, err)
	require.Equal(t, "S5\r", string(cmd))
	cmd, err = BitrateCommand(1000000)
	require.NoError(t, err)
	require.Equal(t, "S8\r", string(cmd))
	_, err = BitrateCommand(33333)
	require.Equal(t, ErrUnsupportedBitrate, err)
}
