package eeprom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"Empty", []byte{}, crcInitial},
		{"CheckValue", []byte("123456789"), 0x29B1},
		{"SingleZero", []byte{0}, 0xE1F0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CRC16(tt.data), "got 0x%04X", CRC16(tt.data))
		})
	}
}

func TestAppendCRCValidates(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		[]byte("Device calibrated\x00"),
		[]byte("Day 7: pill detected\x00"),
		{0xFF, 0xFF, 0xFF, 0xFF},
	}

	for _, in := range inputs {
		withCRC := AppendCRC(append([]byte(nil), in...))
		assert.Len(t, withCRC, len(in)+2)
		assert.True(t, ValidateCRC(withCRC), "input %q", in)
	}
}

func TestValidateCRCDetectsBitFlip(t *testing.T) {
	data := AppendCRC([]byte("Day 3: pill not detected\x00"))
	for i := range data {
		corrupt := append([]byte(nil), data...)
		corrupt[i] ^= 0x01
		assert.False(t, ValidateCRC(corrupt), "flip at byte %d", i)
	}
}
