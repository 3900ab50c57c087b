package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/oops"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	outputJpegQuality = 90

	watermarkOpacity = 90 // out of 255
	watermarkAngle   = 30 // degrees
	tileGutter       = 100
	fontScaleDivisor = 15
	minFontSize      = 40
)

/*
Produces the bytes actually served for an asset. Full tier is the original
image normalized to JPEG; restricted tier gets the brand tiling composited
over it first. Both are deterministic: the same decoded image yields the
same bytes on every call.
*/
type Renderer struct {
	text string
	ttf  *opentype.Font // nil means we render with the built-in face
}

func NewRenderer(cfg config.WatermarkConfig) *Renderer {
	r := &Renderer{text: cfg.Text}

	ttfBytes, err := os.ReadFile(cfg.FontPath)
	if err == nil {
		parsed, parseErr := opentype.Parse(ttfBytes)
		if parseErr == nil {
			r.ttf = parsed
		} else {
			err = parseErr
		}
	}
	if r.ttf == nil {
		// The watermark must still render, just uglier.
		logging.Warn().Err(err).Str("path", cfg.FontPath).Msg("Watermark font unavailable, using built-in face")
	}

	return r
}

func (r *Renderer) Full(img image.Image) ([]byte, error) {
	return encodeJpeg(img)
}

func (r *Renderer) Restricted(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	fontSize := width / fontScaleDivisor
	if fontSize < minFontSize {
		fontSize = minFontSize
	}

	tile := r.textTile(fontSize)
	rotated := rotate(tile, watermarkAngle)
	rw, rh := rotated.Bounds().Dx(), rotated.Bounds().Dy()

	overlay := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := -rw; x < width+rw; x += rw + tileGutter {
		for y := -rh; y < height+rh; y += rh + tileGutter {
			dstRect := image.Rect(x, y, x+rw, y+rh)
			draw.Draw(overlay, dstRect, rotated, rotated.Bounds().Min, draw.Over)
		}
	}

	flattened := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(flattened, flattened.Bounds(), img, bounds.Min, draw.Src)
	draw.Draw(flattened, flattened.Bounds(), overlay, image.Point{}, draw.Over)

	return encodeJpeg(flattened)
}

// Renders the brand string, semi-transparent white on transparent, at the
// requested size.
func (r *Renderer) textTile(fontSize int) *image.RGBA {
	face := r.faceForSize(fontSize)
	metrics := face.Metrics()

	drawer := font.Drawer{
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: watermarkOpacity}),
		Face: face,
	}

	textWidth := drawer.MeasureString(r.text).Ceil()
	if textWidth < 1 {
		textWidth = 1
	}
	tileHeight := (metrics.Ascent + metrics.Descent).Ceil()
	if tileHeight < 1 {
		tileHeight = 1
	}

	tile := image.NewRGBA(image.Rect(0, 0, textWidth, tileHeight))
	drawer.Dst = tile
	drawer.Dot = fixed.Point26_6{X: 0, Y: metrics.Ascent}
	drawer.DrawString(r.text)

	return tile
}

func (r *Renderer) faceForSize(fontSize int) font.Face {
	if r.ttf != nil {
		face, err := opentype.NewFace(r.ttf, &opentype.FaceOptions{
			Size:    float64(fontSize),
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err == nil {
			return face
		}
		logging.Warn().Err(err).Msg("Failed to create watermark face, using built-in face")
	}
	return basicfont.Face7x13
}

// Rotates src counterclockwise by the given angle in degrees, expanding the
// canvas to fit.
func rotate(src *image.RGBA, degrees float64) *image.RGBA {
	theta := degrees * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)

	bounds := src.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	rw := int(math.Ceil(w*cos + h*sin))
	rh := int(math.Ceil(w*sin + h*cos))
	dst := image.NewRGBA(image.Rect(0, 0, rw, rh))

	// Affine map from src to dst: rotate about the src center, then move the
	// result to the dst center.
	cx, cy := w/2, h/2
	dcx, dcy := float64(rw)/2, float64(rh)/2
	m := f64.Aff3{
		cos, -sin, dcx - (cos*cx - sin*cy),
		sin, cos, dcy - (sin*cx + cos*cy),
	}

	xdraw.BiLinear.Transform(dst, m, src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJpeg(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: outputJpegQuality})
	if err != nil {
		return nil, oops.New(err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
