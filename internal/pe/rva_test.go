package pe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRVAConverter(t *testing.T) {
	c := NewRVAConverter([]uint32{0x1000, 0x2000}, []uint32{0x400, 0x800})

	tests := []struct {
		rva  uint32
		want uint32
	}{
		{0x1000, 0x400},
		{0x1FFF, 0x13FF},
		{0x2000, 0x800},
		{0x2050, 0x850},
		{0x9000, 0x7800},
	}
	for _, tt := range tests {
		got, err := c.Offset(tt.rva)
		require.NoError(t, err, "rva 0x%X", tt.rva)
		assert.Equal(t, tt.want, got, "rva 0x%X", tt.rva)
	}

	_, err := c.Offset(0x0FFF)
	assert.ErrorIs(t, err, ErrOutOfBoundsOffset)
	assert.Equal(t, 2, c.Len())
}

func TestRVAConverterEmpty(t *testing.T) {
	_, err := NewRVAConverter(nil, nil).Offset(0x1000)
	assert.ErrorIs(t, err, ErrOutOfBoundsOffset)
}

func TestSectionTableRVAOrder(t *testing.T) {
	// Headers listed out of virtual-address order still convert correctly.
	ti := newTestImage()
	ti.sections[0], ti.sections[1] = ti.sections[1], ti.sections[0]
	img, err := Parse(ti.bytes(t))
	require.NoError(t, err)

	off, err := img.Sections.RVAToOffset(0x2010)
	require.NoError(t, err)
	assert.Equal(t, uint32(testRDataPtr+0x10), off)

	off, err = img.Sections.RVAToOffset(testTextVA + 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(testTextPtr+5), off)
}
