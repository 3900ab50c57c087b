package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	c := ContentHash([]byte("goodbye"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 128) // sha512 hex
}

func TestProcess(t *testing.T) {
	t.Run("thumbnail is bounded", func(t *testing.T) {
		processed, err := Process(testPNG(t, 800, 300))
		require.NoError(t, err)

		assert.Equal(t, 800, processed.Width)
		assert.Equal(t, 300, processed.Height)

		thumb, err := jpeg.Decode(bytes.NewReader(processed.Thumbnail))
		require.NoError(t, err)
		assert.Equal(t, 200, thumb.Bounds().Dx())
		assert.Equal(t, 75, thumb.Bounds().Dy())
	})

	t.Run("small images are not upscaled", func(t *testing.T) {
		processed, err := Process(testPNG(t, 60, 40))
		require.NoError(t, err)

		thumb, err := jpeg.Decode(bytes.NewReader(processed.Thumbnail))
		require.NoError(t, err)
		assert.Equal(t, 60, thumb.Bounds().Dx())
		assert.Equal(t, 40, thumb.Bounds().Dy())
	})

	t.Run("garbage bytes are rejected", func(t *testing.T) {
		_, err := Process([]byte("this is not an image"))
		assert.Error(t, err)
	})
}

func TestReorient(t *testing.T) {
	// 2x1 image: red on the left, blue on the right.
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{B: 255, A: 255})

	t.Run("identity", func(t *testing.T) {
		out := reorient(src, 1)
		assert.Equal(t, src.Bounds(), out.Bounds())
	})

	t.Run("mirrored", func(t *testing.T) {
		out := reorient(src, 2)
		r, _, _, _ := out.At(1, 0).RGBA()
		assert.EqualValues(t, 0xffff, r)
	})

	t.Run("rotated 90", func(t *testing.T) {
		out := reorient(src, 6)
		assert.Equal(t, 1, out.Bounds().Dx())
		assert.Equal(t, 2, out.Bounds().Dy())
	})
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	require.NoError(t, err)
	return buf.Bytes()
}
