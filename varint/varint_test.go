package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVu57RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1<<49 - 1, 1 << 49, MaxVu57}
	for _, v := range cases {
		buf, err := EncodeVu57(v)
		require.NoError(t, err)
		got, n, err := DecodeVu57(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestVu57MaxValueRoundTrips(t *testing.T) {
	buf, err := EncodeVu57(MaxVu57)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(buf), 8)
	got, n, err := DecodeVu57(buf)
	require.NoError(t, err)
	assert.Equal(t, MaxVu57, got)
	assert.Equal(t, len(buf), n)
}

func TestVu57RejectsOverflow(t *testing.T) {
	_, err := EncodeVu57(MaxVu57 + 1)
	assert.Error(t, err)
}

func TestVu57RejectsTruncatedStream(t *testing.T) {
	_, _, err := DecodeVu57([]byte{0x80, 0x80})
	assert.Error(t, err)
}

func TestVu57EightByteForm(t *testing.T) {
	buf, err := EncodeVu57(MaxVu57)
	require.NoError(t, err)
	require.Len(t, buf, 8)
	for _, b := range buf[:7] {
		assert.NotZero(t, b&0x80, "non-final bytes must carry the continuation bit")
	}
}

func TestB1Vu56RoundTrip(t *testing.T) {
	cases := []struct {
		flag bool
		v    uint64
	}{
		{false, 0},
		{true, 0},
		{false, 63},
		{true, 64},
		{false, 1 << 40},
		{true, 1<<56 - 1},
	}
	for _, c := range cases {
		buf, err := EncodeB1Vu56(c.flag, c.v)
		require.NoError(t, err)
		flag, v, n, err := DecodeB1Vu56(buf)
		require.NoError(t, err)
		assert.Equal(t, c.flag, flag)
		assert.Equal(t, c.v, v)
		assert.Equal(t, len(buf), n)
	}
}

func TestB1Vu56ShortFormSingleByte(t *testing.T) {
	buf, err := EncodeB1Vu56(true, 5)
	require.NoError(t, err)
	assert.Len(t, buf, 1)
	assert.Equal(t, byte(0x80|5), buf[0])
}

func TestB1Vu56RejectsOverflow(t *testing.T) {
	_, err := EncodeB1Vu56(false, 1<<56)
	assert.Error(t, err)
}

func TestB1Vu56RejectsEmptyStream(t *testing.T) {
	_, _, _, err := DecodeB1Vu56(nil)
	assert.Error(t, err)
}
