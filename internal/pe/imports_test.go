package pe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImportDirectory(t *testing.T) {
	dir, err := ReadImportDirectory(buildTestRData(), testRDataVA, testRDataVA+testImportOff)
	require.NoError(t, err)

	// The zero descriptor terminates the list and is not returned.
	require.Len(t, dir.Entries, 2)

	k32 := dir.Entries[0]
	assert.Equal(t, "KERNEL32.dll", k32.Name)
	assert.Equal(t, uint32(testRDataVA+testIAT0Off), k32.ImportAddressTableRVA)
	require.Len(t, k32.Imports, 2)
	assert.False(t, k32.Imports[0].ByOrdinal())
	assert.Equal(t, "ExitProcess", k32.Imports[0].Name)
	assert.Equal(t, uint16(0x0100), k32.Imports[0].Hint)
	assert.Equal(t, "GetModuleHandleA", k32.Imports[1].Name)
	assert.Equal(t, uint16(0x0200), k32.Imports[1].Hint)

	u32 := dir.Entries[1]
	assert.Equal(t, "USER32.dll", u32.Name)
	require.Len(t, u32.Imports, 1)
	assert.True(t, u32.Imports[0].ByOrdinal())
	assert.Equal(t, uint32(7), u32.Imports[0].Ordinal)
	assert.Equal(t, uint32(0x80000007), u32.Imports[0].Value)
	assert.Empty(t, u32.Imports[0].Name)
}

func TestReadImportDirectoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		corrupt  func(b le)
		importVA uint32
		want     error
	}{
		{
			name:     "import RVA outside section",
			corrupt:  func(le) {},
			importVA: testRDataVA + testRDataSize,
			want:     ErrOutOfBoundsOffset,
		},
		{
			name:     "module name RVA outside section",
			corrupt:  func(b le) { b.u32(testImportOff+12, 0x100) },
			importVA: testRDataVA,
			want:     ErrOutOfBoundsOffset,
		},
		{
			name:     "hint/name RVA outside section",
			corrupt:  func(b le) { b.u32(testILT0Off, testRDataVA+testRDataSize+8) },
			importVA: testRDataVA,
			want:     ErrOutOfBoundsOffset,
		},
		{
			name: "descriptors run off the end",
			corrupt: func(b le) {
				for off := testRDataSize - 10; off < testRDataSize; off++ {
					b[off] = 0xFF
				}
			},
			importVA: testRDataVA + testRDataSize - 10,
			want:     ErrTruncatedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := le(buildTestRData())
			tt.corrupt(b)
			_, err := ReadImportDirectory(b, testRDataVA, tt.importVA)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
