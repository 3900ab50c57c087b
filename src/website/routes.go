package website

import (
	"net/http"
	"regexp"
	"time"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/render"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewWebsiteRoutes(conn *pgxpool.Pool) http.Handler {
	router := &Router{}
	renderer := render.NewRenderer(config.Config.Watermark)

	wireDependencies := func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Conn = conn
			c.Renderer = renderer
			return h(c)
		}
	}

	rb := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			wireDependencies,
			logRequests,
			panicCatcherMiddleware,
			logContextErrorsMiddleware,
			loadCurrentUser,
		},
	}

	// Public
	rb.GET(regexp.MustCompile(`^/api/listings$`), Listings)
	rb.GET(regexp.MustCompile(`^/api/images/(?P<id>\d+)/thumbnail$`), Thumbnail)
	rb.GET(regexp.MustCompile(`^/verify$`), VerifyEmail)
	rb.POST(regexp.MustCompile(`^/api/register$`), Register)
	rb.POST(regexp.MustCompile(`^/api/login$`), securityTimerMiddleware(time.Second, Login))
	rb.POST(regexp.MustCompile(`^/api/logout$`), needsAuth(Logout))

	// The webhook authenticates with its own shared secret, not a session.
	rb.POST(regexp.MustCompile(`^/telegram/webhook$`), TelegramWebhook)

	// Verified users
	verified := rb.WithMiddleware(needsVerified)
	verified.GET(regexp.MustCompile(`^/api/images/(?P<id>\d+)$`), Image)
	verified.POST(regexp.MustCompile(`^/api/images/(?P<id>\d+)/request-access$`), RequestImageAccess)

	// Admins
	admin := rb.WithMiddleware(adminsOnly)
	admin.POST(regexp.MustCompile(`^/api/images$`), UploadImage)
	admin.POST(regexp.MustCompile(`^/api/listings$`), CreateListing)
	admin.POST(regexp.MustCompile(`^/api/listings/(?P<id>\d+)$`), UpdateListing)
	admin.DELETE(regexp.MustCompile(`^/api/listings/(?P<id>\d+)$`), DeleteListing)
	admin.GET(regexp.MustCompile(`^/api/admin/sources$`), AdminSources)
	admin.GET(regexp.MustCompile(`^/api/admin/events$`), AdminEvents)
	admin.POST(regexp.MustCompile(`^/api/admin/events/(?P<id>\d+)/resolve$`), ResolveAdminEvent)

	rb.AnyMethod(regexp.MustCompile(`^`), FourOhFour)

	return router
}
