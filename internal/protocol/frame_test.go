package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte // full frame with length and checksum positions zeroed
	}{
		{
			name: "halt",
			cmd:  Halt{},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC1, 0x00, 0xF5, 0xE7},
		},
		{
			name: "resume",
			cmd:  Resume{},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC2, 0x00, 0xF5, 0xE7},
		},
		{
			name: "read word",
			cmd:  ReadWord{Addr: 0x2000_0010},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC3, 0x20, 0x00, 0x00, 0x10, 0x00, 0xF5, 0xE7},
		},
		{
			name: "read bytes",
			cmd:  ReadBytes{Addr: 0x0001_0000, Length: 0x0104},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC6, 0x00, 0x01, 0x00, 0x00, 0x01, 0x04, 0x00, 0xF5, 0xE7},
		},
		{
			name: "read words",
			cmd:  ReadWords{Addr: 0x41C0_0200, Count: 3},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC7, 0x41, 0xC0, 0x02, 0x00, 0x00, 0x03, 0x00, 0xF5, 0xE7},
		},
		{
			name: "write",
			cmd:  Write{Addr: 0x2000_0000, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
			want: []byte{0xFF, 0xF9, 0x00, 0x00, 0xC4, 0x20, 0x00, 0x00, 0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0xF5, 0xE7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.cmd)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			if len(frame) != len(tt.want) {
				t.Fatalf("frame length = %d, want %d", len(frame), len(tt.want))
			}

			// Length field must equal total minus the fixed envelope slack.
			gotLen := binary.BigEndian.Uint16(frame[2:4])
			if int(gotLen) != len(frame)-6 {
				t.Errorf("length field = %d, want %d", gotLen, len(frame)-6)
			}

			// Checksum byte must match a recomputation over the same span.
			if got, want := frame[len(frame)-3], frameChecksum(frame); got != want {
				t.Errorf("checksum byte = 0x%02X, want 0x%02X", got, want)
			}

			// Everything else must match the expected layout exactly.
			masked := make([]byte, len(frame))
			copy(masked, frame)
			masked[2], masked[3] = 0, 0
			masked[len(masked)-3] = 0
			if !bytes.Equal(masked, tt.want) {
				t.Errorf("frame layout = % X, want % X", masked, tt.want)
			}
		})
	}
}

func TestEncodeLengthInvariant(t *testing.T) {
	// len = total - 6 must hold for every payload size up to the maximum.
	for _, size := range []int{0, 1, 2, 4, 16, 255, 256, 1024, 4095, 4096} {
		cmd := Write{Addr: 0, Data: make([]byte, size)}
		frame, err := Encode(cmd)
		if err != nil {
			t.Fatalf("Encode(size=%d): %v", size, err)
		}

		gotLen := binary.BigEndian.Uint16(frame[2:4])
		if int(gotLen) != len(frame)-6 {
			t.Errorf("size %d: length field = %d, want %d", size, gotLen, len(frame)-6)
		}
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"write over limit", Write{Addr: 0, Data: make([]byte, MaxPayloadSize+1)}},
		{"read bytes over limit", ReadBytes{Addr: 0, Length: MaxPayloadSize + 1}},
		{"read words over limit", ReadWords{Addr: 0, Count: MaxPayloadSize/WordSize + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.cmd)
			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("Encode = %v, want EncodingError", err)
			}
		})
	}
}

func TestExpectedReplyLen(t *testing.T) {
	tests := []struct {
		cmd  Command
		want int
	}{
		{Halt{}, 9},
		{Resume{}, 9},
		{Write{Addr: 0, Data: []byte{1}}, 9},
		{ReadWord{Addr: 0}, 13},
		{ReadBytes{Addr: 0, Length: 10}, 19},
		{ReadWords{Addr: 0, Count: 2}, 17},
	}

	for _, tt := range tests {
		if got := ExpectedReplyLen(tt.cmd); got != tt.want {
			t.Errorf("ExpectedReplyLen(%s) = %d, want %d", tt.cmd.Name(), got, tt.want)
		}
	}
}
