package api

import (
	"net/http"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/usecase"
	xhttp "SynthFeed/pkg/http"
	xlogger "SynthFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FeedHandler serves the running feed's state over HTTP.
type FeedHandler struct {
	logger *xlogger.Logger
	runner *usecase.FeedRunner
}

func NewFeedHandler(logger *xlogger.Logger, runner *usecase.FeedRunner) *FeedHandler {
	return &FeedHandler{logger: logger, runner: runner}
}

func (h *FeedHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/feed")
	g.GET("", h.Snapshot)
	g.GET("/history", h.History)
	g.GET("/assets", h.Assets)
	g.POST("/reset", h.Reset)
}

func (h *FeedHandler) Snapshot(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.runner.Snapshot())
}

func (h *FeedHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticks := h.runner.History(req.N)
	return xhttp.ListResponse(c, ticks, int64(len(ticks)))
}

func (h *FeedHandler) Assets(c echo.Context) error {
	assets := h.runner.Assets()
	return xhttp.ListResponse(c, assets, int64(len(assets)))
}

func (h *FeedHandler) Reset(c echo.Context) error {
	req := &models.ResetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.runner.RequestReset(req.Reason); err != nil {
		h.logger.Error("feed reset error", xlogger.String("reason", req.Reason), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("feed reset failed").
			WithParam("feed", h.runner.Name()).
			WithError(err))
	}
	h.logger.Info("feed reset requested", xlogger.String("reason", req.Reason))
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
		"feed":   h.runner.Name(),
		"reason": req.Reason,
	})
}

func (h *FeedHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"feed":    h.runner.Name(),
		"running": h.runner.Running(),
	})
}
