package website

import (
	"net/http"
	"time"

	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
)

type sourceJson struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// The provenance catalog, for admins attributing uploads.
func AdminSources(c *RequestContext) ResponseData {
	sources, err := db.Query[models.AssetSource](c, c.Conn,
		`
		SELECT id, name, description
		FROM asset_source
		ORDER BY name, id
		`,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch asset sources"))
	}

	result := make([]sourceJson, 0, len(sources))
	for _, s := range sources {
		result = append(result, sourceJson{ID: s.ID, Name: s.Name, Description: s.Description})
	}

	var res ResponseData
	res.WriteJson(result)
	return res
}

type adminEventJson struct {
	ID         int       `json:"id"`
	AssetID    *int      `json:"asset_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	IsResolved bool      `json:"is_resolved"`
}

// Things that went sideways and need a human, newest first. Resolved events
// stay in the feed; the flag is for the admin UI to dim them.
func AdminEvents(c *RequestContext) ResponseData {
	events, err := db.Query[models.AdminEvent](c, c.Conn,
		`
		SELECT id, asset_id, message, created_at, is_resolved
		FROM admin_event
		ORDER BY created_at DESC, id DESC
		`,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch admin events"))
	}

	result := make([]adminEventJson, 0, len(events))
	for _, e := range events {
		result = append(result, adminEventJson{
			ID:         e.ID,
			AssetID:    e.AssetID,
			Message:    e.Message,
			CreatedAt:  e.CreatedAt,
			IsResolved: e.IsResolved,
		})
	}

	var res ResponseData
	res.WriteJson(result)
	return res
}

func ResolveAdminEvent(c *RequestContext) ResponseData {
	eventID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	tag, err := c.Conn.Exec(c, "UPDATE admin_event SET is_resolved = TRUE WHERE id = $1", eventID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to resolve admin event"))
	}
	if tag.RowsAffected() < 1 {
		return FourOhFour(c)
	}

	var res ResponseData
	res.WriteJson(map[string]string{"status": "resolved"})
	return res
}
