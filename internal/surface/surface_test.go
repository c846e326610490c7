package surface

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImageCopiesAndRebases(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 14, 26))
	src.Set(10, 20, color.RGBA{R: 255, A: 255})

	s := FromImage(src)
	assert.Equal(t, Size{Width: 4, Height: 6}, s.Size())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, s.Image().At(0, 0))

	// mutating the source must not leak into the snapshot
	src.Set(10, 20, color.RGBA{G: 255, A: 255})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, s.Image().At(0, 0))
}

func TestDecodeBytesPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 5))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	s, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Width())
	assert.Equal(t, 5, s.Height())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	s := Blank(8, 10, color.White)

	band, err := s.Rows(4, 10)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 4, 8, 10), band.Bounds())

	for _, r := range [][2]int{{-1, 3}, {0, 11}, {5, 5}, {6, 2}} {
		_, err := s.Rows(r[0], r[1])
		assert.Error(t, err, "rows %v", r)
	}
}

func TestSizeEmpty(t *testing.T) {
	assert.True(t, Size{Width: 0, Height: 10}.Empty())
	assert.True(t, Size{Width: 10}.Empty())
	assert.False(t, Size{Width: 1, Height: 1}.Empty())
	assert.True(t, Blank(0, 5, color.White).Size().Empty())
}
