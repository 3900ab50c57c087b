package assets

import (
	"bytes"
	"context"
	"crypto/sha512"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
	"github.com/rwcarlsen/goexif/exif"
	xdraw "golang.org/x/image/draw"
)

const thumbnailMaxDimension = 200
const thumbnailJpegQuality = 80

// Returned when uploaded bytes cannot be stored as an image. Delivery of a
// typed error lets the upload handler answer 400 instead of 500.
type InvalidAssetError struct {
	err error
}

func (e InvalidAssetError) Error() string { return e.err.Error() }
func (e InvalidAssetError) Unwrap() error { return e.err }

type CreateInput struct {
	Content []byte

	// Optional params
	SourceID *int
}

// Hex digest used both for dedup and as the fingerprint that cache
// validators sign. Always computed over the raw uploaded bytes, before any
// orientation fixes or re-encoding.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha512.Sum512(content))
}

/*
Stores an image, deduplicating by content hash. Calling this twice with the
same bytes returns the same row both times and never writes twice. Malformed
image data fails the whole call; nothing is persisted.
*/
func Create(ctx context.Context, conn db.ConnOrTx, in CreateInput) (*models.Asset, error) {
	if len(in.Content) == 0 {
		return nil, InvalidAssetError{fmt.Errorf("could not store asset: no bytes of data were provided")}
	}

	hash := ContentHash(in.Content)

	existing, err := GetByHash(ctx, conn, hash)
	if err == nil {
		return existing, nil
	} else if err != db.NotFound {
		return nil, err
	}

	processed, err := Process(in.Content)
	if err != nil {
		return nil, err
	}

	id, err := db.QueryOneScalar[int](ctx, conn,
		`
		INSERT INTO asset (original, thumbnail, sha512_hash, width, height, source_id)
		VALUES            ($1,       $2,        $3,          $4,    $5,     $6)
		RETURNING id
		`,
		in.Content,
		processed.Thumbnail,
		hash,
		processed.Width,
		processed.Height,
		in.SourceID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Another upload of the same bytes won the race. Their row is
			// just as good as ours would have been.
			return GetByHash(ctx, conn, hash)
		}
		return nil, oops.New(err, "failed to save asset record")
	}

	asset, err := GetByID(ctx, conn, id)
	if err != nil {
		return nil, oops.New(err, "failed to fetch newly-created asset")
	}

	return asset, nil
}

func GetByID(ctx context.Context, conn db.ConnOrTx, id int) (*models.Asset, error) {
	return db.QueryOne[models.Asset](ctx, conn,
		`
		SELECT id, original, thumbnail, sha512_hash, width, height, telegram_file_id, source_id, created_at
		FROM asset
		WHERE id = $1
		`,
		id,
	)
}

func GetByHash(ctx context.Context, conn db.ConnOrTx, hash string) (*models.Asset, error) {
	return db.QueryOne[models.Asset](ctx, conn,
		`
		SELECT id, original, thumbnail, sha512_hash, width, height, telegram_file_id, source_id, created_at
		FROM asset
		WHERE sha512_hash = $1
		`,
		hash,
	)
}

// Records the file handle the external channel assigned to this asset's
// bytes, so future relays can skip the upload. Losing this write is fine.
func SetTelegramFileID(ctx context.Context, conn db.ConnOrTx, assetID int, fileID string) error {
	_, err := conn.Exec(ctx,
		`
		UPDATE asset
		SET telegram_file_id = $1
		WHERE id = $2
		`,
		fileID,
		assetID,
	)
	if err != nil {
		return oops.New(err, "failed to cache telegram file id")
	}
	return nil
}

type ProcessedImage struct {
	Image     image.Image
	Width     int
	Height    int
	Thumbnail []byte
}

/*
Decodes image bytes, applies any EXIF orientation, and derives the bounded
thumbnail. Pure with respect to storage; Create uses it, and the delivery
path reuses Decode for rendering.
*/
func Process(content []byte) (*ProcessedImage, error) {
	img, err := Decode(content)
	if err != nil {
		return nil, err
	}

	thumb, err := makeThumbnail(img)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &ProcessedImage{
		Image:     img,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Thumbnail: thumb,
	}, nil
}

// Decodes JPEG/PNG/GIF bytes and bakes the EXIF orientation into the pixels.
func Decode(content []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, InvalidAssetError{oops.New(err, "could not decode image data")}
	}
	return reorient(img, exifOrientation(content)), nil
}

func exifOrientation(content []byte) int {
	ex, err := exif.Decode(bytes.NewReader(content))
	if err != nil {
		// No EXIF at all (e.g. PNG) is the common case.
		return 1
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// Rewrites pixels according to an EXIF orientation value (1-8).
func reorient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	sideways := orientation >= 5
	var dst *image.RGBA
	if sideways {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}

func makeThumbnail(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	tw, th := w, h
	longest := w
	if h > longest {
		longest = h
	}
	if longest > thumbnailMaxDimension {
		scale := float64(thumbnailMaxDimension) / float64(longest)
		tw = int(float64(w) * scale)
		th = int(float64(h) * scale)
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	var buf bytes.Buffer
	err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailJpegQuality})
	if err != nil {
		return nil, oops.New(err, "failed to encode thumbnail")
	}
	return buf.Bytes(), nil
}
