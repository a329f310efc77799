package leb128

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUint32(t *testing.T) {
	for _, c := range []struct {
		name   string
		bytes  []byte
		exp    uint32
		expErr bool
	}{
		{name: "zero", bytes: []byte{0x00}, exp: 0},
		{name: "one byte", bytes: []byte{0x04}, exp: 4},
		{name: "padded zero", bytes: []byte{0x80, 0}, exp: 0},
		{name: "two byte", bytes: []byte{0x80, 0x7f}, exp: 16256},
		{name: "three byte", bytes: []byte{0xe5, 0x8e, 0x26}, exp: 624485},
		{name: "four byte", bytes: []byte{0x80, 0x80, 0x80, 0x4f}, exp: 165675008},
		{name: "max uint32", bytes: []byte{0xff, 0xff, 0xff, 0xff, 0xf}, exp: math.MaxUint32},
		{name: "six continuations", bytes: []byte{0x83, 0x80, 0x80, 0x80, 0x80, 0x00}, expErr: true},
		{name: "bits beyond 32", bytes: []byte{0x82, 0x80, 0x80, 0x80, 0x70}, expErr: true},
		{name: "unterminated", bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, expErr: true},
	} {
		c := c
		t.Run(c.name, func(t *testing.T) {
			actual, n, err := DecodeUint32(bytes.NewReader(c.bytes))
			if c.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.exp, actual)
			require.Equal(t, uint64(len(c.bytes)), n)
		})
	}
}

func TestDecodeUint32_SixContinuedBytes(t *testing.T) {
	// spec.md §8 Boundary behaviour 9: a varuint32 whose encoding uses six
	// 0x80-continued bytes fails with DecodeError-worthy error.
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}))
	require.Error(t, err)
}

func TestDecodeInt32(t *testing.T) {
	for _, c := range []struct {
		name   string
		bytes  []byte
		exp    int32
		expErr bool
	}{
		{name: "19", bytes: []byte{0x13}, exp: 19},
		{name: "zero", bytes: []byte{0x00}, exp: 0},
		{name: "127 padded", bytes: []byte{0xFF, 0x00}, exp: 127},
		{name: "129", bytes: []byte{0x81, 0x01}, exp: 129},
		{name: "-1", bytes: []byte{0x7f}, exp: -1},
		{name: "-127", bytes: []byte{0x81, 0x7f}, exp: -127},
		{name: "-129", bytes: []byte{0xFF, 0x7e}, exp: -129},
		{name: "overflow 32", bytes: []byte{0xff, 0xff, 0xff, 0xff, 0x4f}, expErr: true},
	} {
		c := c
		t.Run(c.name, func(t *testing.T) {
			actual, n, err := DecodeInt32(bytes.NewReader(c.bytes))
			if c.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.exp, actual)
			require.Equal(t, uint64(len(c.bytes)), n)
		})
	}
}

func TestDecodeInt64(t *testing.T) {
	for _, c := range []struct {
		name  string
		bytes []byte
		exp   int64
	}{
		{name: "zero", bytes: []byte{0x00}, exp: 0},
		{name: "-1", bytes: []byte{0x7f}, exp: -1},
		{
			name:  "min int64",
			bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f},
			exp:   math.MinInt64,
		},
	} {
		c := c
		t.Run(c.name, func(t *testing.T) {
			actual, n, err := DecodeInt64(bytes.NewReader(c.bytes))
			require.NoError(t, err)
			require.Equal(t, c.exp, actual)
			require.Equal(t, uint64(len(c.bytes)), n)
		})
	}
}

func TestDecodeUint7(t *testing.T) {
	v, err := DecodeUint7(bytes.NewReader([]byte{0x01}))
	require.NoError(t, err)
	require.Equal(t, byte(1), v)

	_, err = DecodeUint7(bytes.NewReader([]byte{0x80, 0x00}))
	require.Error(t, err)
}
