package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/metrics"
	"github.com/peterneubauer/savethesquare/internal/middleware"
)

// Handlers everything the router mounts; nil handlers leave their routes out
type Handlers struct {
	Health    *HealthHandler
	Property  *PropertyHandler
	Donations *DonationsHandler
	Checkout  *CheckoutHandler
	Email     *EmailHandler
	Selection *SelectionHandler
	Live      *LiveHandler
}

// RouterOptions cross-cutting middleware settings
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
}

// SetupRouter registers every API route on a new gin engine
func SetupRouter(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(), middleware.CORS(opts.AllowedOrigins))

	limited := func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limited = opts.Limiter.Middleware()
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	if h.Health != nil {
		api.GET("/health", h.Health.GetHealth)
	}
	if h.Property != nil {
		api.GET("/config", h.Property.GetConfig)
		api.GET("/property", h.Property.GetProperty)
		api.GET("/cells/coordinates", h.Property.GetCellCoordinates)
	}
	if h.Donations != nil {
		api.GET("/donations", h.Donations.GetDonations)
		api.GET("/donations/:id", h.Donations.GetDonation)
		api.POST("/donations/test", limited, h.Donations.SaveTestDonation)
	}
	if h.Checkout != nil {
		api.POST("/checkout", limited, h.Checkout.PostCheckout)
		api.POST("/webhook", h.Checkout.PostWebhook)
	}
	if h.Email != nil {
		api.POST("/send-confirmation-email", limited, h.Email.PostSendConfirmationEmail)
	}
	if h.Selection != nil {
		sessions := api.Group("/sessions")
		sessions.POST("", limited, h.Selection.CreateSession)
		sessions.GET("/:id", h.Selection.GetSession)
		sessions.POST("/:id/click", limited, h.Selection.Click)
		sessions.POST("/:id/text", limited, h.Selection.ApplyText)
		sessions.DELETE("/:id/selection", h.Selection.ClearSelection)
		sessions.POST("/:id/refresh", limited, h.Selection.Refresh)
		sessions.POST("/:id/confirm", limited, h.Selection.Confirm)
		sessions.POST("/:id/checkout", limited, h.Selection.Checkout)
		sessions.GET("/:id/settings", h.Selection.GetSettings)
		sessions.PUT("/:id/settings", limited, h.Selection.PutSettings)
	}
	if h.Live != nil {
		api.GET("/live", h.Live.ServeLive)
	}

	return r
}
