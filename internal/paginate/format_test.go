package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
		ok   bool
	}{
		{"", Millimeter, true},
		{"MM", Millimeter, true},
		{" pt ", Point, true},
		{"in", Inch, true},
		{"cm", "", false},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPageFormatPoints(t *testing.T) {
	w, h := A4.Points()
	assert.InDelta(t, 595.276, w, 0.001)
	assert.InDelta(t, 841.890, h, 0.001)

	w, h = Letter.Points()
	assert.InDelta(t, 612, w, 1e-9)
	assert.InDelta(t, 792, h, 1e-9)
}

func TestPageFormatWithDefaults(t *testing.T) {
	assert.Equal(t, A4, PageFormat{}.WithDefaults())
	assert.Equal(t, PageFormat{Width: 100, Height: 50, Unit: Millimeter}, PageFormat{Width: 100, Height: 50}.WithDefaults())
	assert.Equal(t, Letter, Letter.WithDefaults())
	assert.Equal(t, "210x297mm", A4.String())
}
