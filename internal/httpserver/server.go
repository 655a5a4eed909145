package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	api "github.com/Izzoudine/back-flow/api/http"
)

// New creates a configured Echo server instance with the coach routes
// registered.
func New(h api.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	// Browser demo clients are served from a separate origin.
	e.Use(middleware.CORS())
	h.Register(e)
	return e
}
