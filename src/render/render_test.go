package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/jroots/jroots/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer() *Renderer {
	// Nonexistent font path: the built-in face keeps these tests independent
	// of the host's installed fonts, and covers the fallback path for free.
	return NewRenderer(config.WatermarkConfig{
		Text:     "JRoots.co",
		FontPath: "/nonexistent/font.ttf",
	})
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return img
}

func TestRestrictedAltersPixels(t *testing.T) {
	r := testRenderer()
	img := testImage(400, 300)

	full, err := r.Full(img)
	require.NoError(t, err)
	restricted, err := r.Restricted(img)
	require.NoError(t, err)

	assert.NotEqual(t, full, restricted)

	decoded, err := jpeg.Decode(bytes.NewReader(restricted))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Dx(), decoded.Bounds().Dx())
	assert.Equal(t, img.Bounds().Dy(), decoded.Bounds().Dy())
}

func TestRenderingIsDeterministic(t *testing.T) {
	r := testRenderer()
	img := testImage(640, 480)

	first, err := r.Restricted(img)
	require.NoError(t, err)
	second, err := r.Restricted(img)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	fullFirst, err := r.Full(img)
	require.NoError(t, err)
	fullSecond, err := r.Full(img)
	require.NoError(t, err)
	assert.Equal(t, fullFirst, fullSecond)
}

func TestFullIsPassthroughNormalization(t *testing.T) {
	r := testRenderer()
	img := testImage(100, 100)

	full, err := r.Full(img)
	require.NoError(t, err)

	// Full tier only normalizes the encoding; the pixel content must survive.
	decoded, err := jpeg.Decode(bytes.NewReader(full))
	require.NoError(t, err)
	rr, gg, bb, _ := decoded.At(50, 50).RGBA()
	assert.InDelta(t, 200, rr>>8, 10)
	assert.InDelta(t, 30, gg>>8, 10)
	assert.InDelta(t, 30, bb>>8, 10)
}

func TestRotateExpandsCanvas(t *testing.T) {
	tile := image.NewRGBA(image.Rect(0, 0, 100, 20))
	rotated := rotate(tile, 30)
	assert.Greater(t, rotated.Bounds().Dy(), 20)
	assert.Greater(t, rotated.Bounds().Dx(), 20)
}
