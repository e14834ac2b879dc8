package pe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

func TestComputeStubSize(t *testing.T) {
	tests := []struct {
		name string
		hdr  DOSHeader
		want int
	}{
		{
			name: "clamped by e_lfanew",
			hdr:  DOSHeader{FileSizeInPages: 3, UsedBytesInLastPage: 200, HeaderSizeInParagraphs: 4, AddressOfNewExeHeader: 216},
			want: 152,
		},
		{
			name: "limited by page count",
			hdr:  DOSHeader{FileSizeInPages: 1, UsedBytesInLastPage: 100, HeaderSizeInParagraphs: 4, AddressOfNewExeHeader: 0x80},
			want: 36,
		},
		{
			name: "linker default",
			hdr:  DOSHeader{FileSizeInPages: 3, UsedBytesInLastPage: 0x90, HeaderSizeInParagraphs: 4, AddressOfNewExeHeader: 0xF8},
			want: 0xF8 - 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hdr.ComputeStubSize())
		})
	}
}

func TestReadDOSHeader(t *testing.T) {
	data := buildTestImage(t)
	r := binio.NewReader(data)

	h, err := ReadDOSHeader(r)
	require.NoError(t, err)
	assert.Equal(t, DOSHeaderSize, r.Position())
	assert.Equal(t, uint16(DOSMagic), h.Magic)
	assert.Equal(t, uint16(0x40), h.AddressOfRelocationTable)
	assert.Equal(t, uint32(216), h.AddressOfNewExeHeader)
	assert.Equal(t, 152, h.StubSize)

	stub, err := ReadDOSStub(&h, r)
	require.NoError(t, err)
	assert.Len(t, stub, h.StubSize)
	assert.Equal(t, int(h.AddressOfNewExeHeader), r.Position())
	assert.Contains(t, string(stub), "cannot be run in DOS mode")
}

func TestReadDOSHeaderTruncated(t *testing.T) {
	data := buildTestImage(t)
	_, err := ReadDOSHeader(binio.NewReader(data[:DOSHeaderSize-1]))
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestReadDOSStubBadLfanew(t *testing.T) {
	h := DOSHeader{AddressOfNewExeHeader: 0x20}
	r := binio.NewReader(make([]byte, DOSHeaderSize))
	require.NoError(t, r.Seek(DOSHeaderSize))

	_, err := ReadDOSStub(&h, r)
	assert.ErrorIs(t, err, ErrMalformedStructure)
}

func TestDOSHeaderWriteMatchesRead(t *testing.T) {
	data := buildTestImage(t)
	h, err := ReadDOSHeader(binio.NewReader(data))
	require.NoError(t, err)

	w := binio.NewWriter()
	WriteDOSHeader(w, &h)
	assert.Equal(t, data[:DOSHeaderSize], w.Bytes())
}
