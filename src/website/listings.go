package website

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/utils"
)

const defaultPageSize = 20
const maxPageSize = 100

type listingJson struct {
	ID           int    `json:"id"`
	AssetID      int    `json:"asset_id"`
	PriceCents   int    `json:"price_cents"`
	Description  string `json:"description"`
	ImageUrl     string `json:"image_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type listingPageJson struct {
	Items []listingJson `json:"items"`
	Total int           `json:"total"`
}

func listingToJson(l *models.Listing) listingJson {
	return listingJson{
		ID:           l.ID,
		AssetID:      l.AssetID,
		PriceCents:   l.PriceCents,
		Description:  l.Description,
		ImageUrl:     fmt.Sprintf("%s/api/images/%d", config.Config.BaseUrl, l.AssetID),
		ThumbnailUrl: fmt.Sprintf("%s/api/images/%d/thumbnail", config.Config.BaseUrl, l.AssetID),
	}
}

// Public search over listings. Substring match only; anything fancier is a
// job for an actual search engine.
func Listings(c *RequestContext) ResponseData {
	query := c.URL().Query().Get("q")

	page := 1
	if pageStr := c.URL().Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			return c.RejectRequest("Bad 'page' parameter.")
		}
		page = parsed
	}

	perPage := defaultPageSize
	if perPageStr := c.URL().Query().Get("per_page"); perPageStr != "" {
		parsed, err := strconv.Atoi(perPageStr)
		if err != nil {
			return c.RejectRequest("Bad 'per_page' parameter.")
		}
		perPage = utils.IntClamp(1, parsed, maxPageSize)
	}

	pattern := "%" + query + "%"

	total, err := db.QueryOneScalar[int](c, c.Conn,
		`
		SELECT COUNT(*)
		FROM listing
		WHERE description ILIKE $1
		`,
		pattern,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to count listings"))
	}

	listings, err := db.Query[models.Listing](c, c.Conn,
		`
		SELECT id, asset_id, price_cents, description, created_at, updated_at
		FROM listing
		WHERE description ILIKE $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
		`,
		pattern, perPage, (page-1)*perPage,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch listings"))
	}

	result := listingPageJson{
		Items: make([]listingJson, 0, len(listings)),
		Total: total,
	}
	for _, l := range listings {
		result.Items = append(result.Items, listingToJson(l))
	}

	var res ResponseData
	res.WriteJson(result)
	return res
}

func CreateListing(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.RejectRequest("Bad form data.")
	}

	assetID, err := strconv.Atoi(form.Get("asset_id"))
	if err != nil {
		return c.RejectRequest("Bad 'asset_id'.")
	}
	priceCents, err := strconv.Atoi(form.Get("price_cents"))
	if err != nil || priceCents < 0 {
		return c.RejectRequest("Bad 'price_cents'.")
	}
	description := form.Get("description")
	if description == "" {
		return c.RejectRequest("A description is required.")
	}

	listing, err := db.QueryOne[models.Listing](c, c.Conn,
		`
		INSERT INTO listing (asset_id, price_cents, description)
		VALUES ($1, $2, $3)
		RETURNING id, asset_id, price_cents, description, created_at, updated_at
		`,
		assetID, priceCents, description,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to create listing"))
	}

	res := ResponseData{StatusCode: http.StatusCreated}
	res.WriteJson(listingToJson(listing))
	return res
}

func UpdateListing(c *RequestContext) ResponseData {
	listingID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	form, err := c.GetFormValues()
	if err != nil {
		return c.RejectRequest("Bad form data.")
	}

	priceCents, err := strconv.Atoi(form.Get("price_cents"))
	if err != nil || priceCents < 0 {
		return c.RejectRequest("Bad 'price_cents'.")
	}
	description := form.Get("description")
	if description == "" {
		return c.RejectRequest("A description is required.")
	}

	listing, err := db.QueryOne[models.Listing](c, c.Conn,
		`
		UPDATE listing
		SET price_cents = $1, description = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, asset_id, price_cents, description, created_at, updated_at
		`,
		priceCents, description, listingID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return FourOhFour(c)
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to update listing"))
	}

	var res ResponseData
	res.WriteJson(listingToJson(listing))
	return res
}

// Removes the listing only. The asset and any grants against it stay; the
// image simply stops being advertised.
func DeleteListing(c *RequestContext) ResponseData {
	listingID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	tag, err := c.Conn.Exec(c, "DELETE FROM listing WHERE id = $1", listingID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to delete listing"))
	}
	if tag.RowsAffected() < 1 {
		return FourOhFour(c)
	}

	return ResponseData{StatusCode: http.StatusNoContent}
}
