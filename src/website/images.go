package website

import (
	"errors"
	"net/http"

	"github.com/jroots/jroots/src/access"
	"github.com/jroots/jroots/src/assets"
	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/etag"
	"github.com/jroots/jroots/src/oops"
)

/*
The protected delivery path. The tier is resolved fresh on every request and
the cache validator is bound to it, so a 304 can only ever confirm bytes the
requester is entitled to right now; a newly granted user gets a different
validator and therefore a miss.
*/
func Image(c *RequestContext) ResponseData {
	assetID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	asset, err := assets.GetByID(c, c.Conn, assetID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return FourOhFour(c)
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch asset"))
	}

	tier, err := access.Resolve(c, c.Conn, c.CurrentUser, asset.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to resolve access tier"))
	}

	expectedTag := etag.Compute(config.Config.Auth.SecretKey, tier, asset.Sha512Hash)

	var res ResponseData
	res.Header().Set("ETag", `"`+expectedTag+`"`)
	res.Header().Set("Cache-Control", "private, max-age=3600")

	if etag.Matches(c.Req.Header.Get("If-None-Match"), expectedTag) {
		res.StatusCode = http.StatusNotModified
		return res
	}

	img, err := assets.Decode(asset.Original)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "stored asset failed to decode"))
	}

	var body []byte
	switch tier {
	case access.TierFull:
		body, err = c.Renderer.Full(img)
	default:
		body, err = c.Renderer.Restricted(img)
	}
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to render asset"))
	}

	res.Header().Set("Content-Type", "image/jpeg")
	res.Write(body)
	return res
}

// Thumbnails are public and watermark-free; at 200px there is nothing worth
// protecting, so they get long-lived shared caching instead.
func Thumbnail(c *RequestContext) ResponseData {
	assetID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	asset, err := assets.GetByID(c, c.Conn, assetID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return FourOhFour(c)
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch asset"))
	}

	var res ResponseData
	res.Header().Set("Content-Type", "image/jpeg")
	res.Header().Set("Cache-Control", "public, max-age=86400")
	res.Write(asset.Thumbnail)
	return res
}
