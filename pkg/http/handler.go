package http

import "github.com/labstack/echo/v4"

// Handler is implemented by every route group mounted on the Server.
// A nil Handler in the list passed to NewServer is skipped.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
