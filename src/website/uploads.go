package website

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jroots/jroots/src/assets"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/oops"
)

const maxUploadBytes = 50 * 1024 * 1024

type uploadResult struct {
	ID           int    `json:"id"`
	Sha512Hash   string `json:"sha512_hash"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AlreadyKnown bool   `json:"already_known"`
}

/*
Admin-only multipart upload. A declared sha512 lets a bulk importer skip
sending bytes the server already has; the declaration is only ever used as an
existence check, the stored hash always comes from the bytes themselves.
*/
func UploadImage(c *RequestContext) ResponseData {
	if declared := strings.ToLower(c.Req.FormValue("sha512")); declared != "" {
		existing, err := assets.GetByHash(c, c.Conn, declared)
		if err == nil {
			return uploadResponse(existing.ID, existing.Sha512Hash, existing.Width, existing.Height, true)
		} else if !errors.Is(err, db.NotFound) {
			return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to check declared hash"))
		}
	}

	file, _, err := c.Req.FormFile("file")
	if err != nil {
		return c.RejectRequest("You must provide a 'file' field.")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read upload"))
	}
	if len(content) > maxUploadBytes {
		return c.ErrorResponse(http.StatusRequestEntityTooLarge)
	}

	asset, err := assets.Create(c, c.Conn, assets.CreateInput{Content: content})
	if err != nil {
		var invalid assets.InvalidAssetError
		if errors.As(err, &invalid) {
			return c.RejectRequest("The file could not be decoded as an image.")
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to store asset"))
	}

	return uploadResponse(asset.ID, asset.Sha512Hash, asset.Width, asset.Height, false)
}

func uploadResponse(id int, hash string, width, height int, known bool) ResponseData {
	var res ResponseData
	if !known {
		res.StatusCode = http.StatusCreated
	}
	res.WriteJson(uploadResult{
		ID:           id,
		Sha512Hash:   hash,
		Width:        width,
		Height:       height,
		AlreadyKnown: known,
	})
	return res
}
