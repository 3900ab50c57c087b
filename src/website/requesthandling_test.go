package website

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/jroots/jroots/src/models"
	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	router := &Router{}
	rb := RouteBuilder{Router: router}

	rb.GET(regexp.MustCompile(`^/api/images/(?P<id>\d+)$`), func(c *RequestContext) ResponseData {
		var res ResponseData
		res.Write([]byte("image " + c.PathParams["id"]))
		return res
	})
	rb.POST(regexp.MustCompile(`^/api/images/(?P<id>\d+)/request-access$`), func(c *RequestContext) ResponseData {
		return ResponseData{StatusCode: http.StatusAccepted}
	})
	rb.AnyMethod(regexp.MustCompile(`^`), FourOhFour)

	t.Run("path params", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/42", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image 42", rec.Body.String())
	})

	t.Run("method matters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/images/42", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no body for HEAD", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/images/42", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, rec.Body.Len())
		assert.NotEmpty(t, rec.Header().Get("Content-Length"))
	})

	t.Run("wildcard 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id does not match", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/banana", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthMiddlewares(t *testing.T) {
	ok := func(c *RequestContext) ResponseData {
		return ResponseData{StatusCode: http.StatusOK}
	}

	t.Run("needsVerified rejects anonymous", func(t *testing.T) {
		res := needsVerified(ok)(&RequestContext{})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("needsVerified rejects unverified", func(t *testing.T) {
		c := &RequestContext{CurrentUser: &models.User{Status: models.UserStatusInactive}}
		res := needsVerified(ok)(c)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("needsVerified passes verified", func(t *testing.T) {
		c := &RequestContext{CurrentUser: &models.User{Status: models.UserStatusConfirmed}}
		res := needsVerified(ok)(c)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("adminsOnly hides the route", func(t *testing.T) {
		c := &RequestContext{CurrentUser: &models.User{Status: models.UserStatusConfirmed}}
		res := adminsOnly(ok)(c)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)

		c.CurrentUser.IsAdmin = true
		res = adminsOnly(ok)(c)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}
