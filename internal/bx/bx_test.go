package bx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/bx"
)

func TestU32RoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	bx.PutU32At(buf, 4, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), bx.U32At(buf, 4))
}

func TestU64RoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	bx.PutU64At(buf, 0, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), bx.U64At(buf, 0))
}

func TestU16RoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	bx.PutU16At(buf, 2, 0xbeef)
	require.Equal(t, uint16(0xbeef), bx.U16At(buf, 2))
}

func TestF64RoundTripNegativeAndZero(t *testing.T) {
	buf := make([]byte, 16)
	bx.PutF64At(buf, 0, -3.14159)
	require.InDelta(t, -3.14159, bx.F64At(buf, 0), 1e-12)

	bx.PutF64At(buf, 8, 0)
	require.Equal(t, 0.0, bx.F64At(buf, 8))
}
