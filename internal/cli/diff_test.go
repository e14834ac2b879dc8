package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyZcR/pecoff/internal/pe"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []byte
		wantFirst int
		wantCount int
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, -1, 0},
		{"both empty", nil, nil, -1, 0},
		{"one byte", []byte{1, 2, 3}, []byte{1, 9, 3}, 1, 1},
		{"several", []byte{0, 2, 0, 4}, []byte{1, 2, 3, 4}, 0, 2},
		{"longer b", []byte{1, 2}, []byte{1, 2, 3, 4}, 2, 2},
		{"shorter b", []byte{1, 2, 3}, []byte{5}, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, count := Diff(tt.a, tt.b)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestDiffRoundTrip(t *testing.T) {
	data, err := pe.Assemble(newReportImage())
	require.NoError(t, err)

	img, err := pe.Parse(data)
	require.NoError(t, err)
	again, err := pe.Assemble(img)
	require.NoError(t, err)

	first, count := Diff(data, again)
	assert.Equal(t, -1, first)
	assert.Zero(t, count)

	img.OptionalHeader.AddressOfEntryPoint = 0x1020
	patched, err := pe.Assemble(img)
	require.NoError(t, err)
	first, count = Diff(data, patched)
	assert.Equal(t, pe.DOSHeaderSize+4+pe.COFFHeaderSize+16, first)
	assert.Equal(t, 1, count)
}
