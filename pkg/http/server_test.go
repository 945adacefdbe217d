package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

type pingRequest struct {
	N int `query:"n" json:"n" default:"3" validate:"gte=1,lte=10"`
}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		req := &pingRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("feed %q not found", "x"))
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("bad handler")
	})
}

func get(t *testing.T, s *Server, target string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec.Code, body
}

func TestServerRoutesAndResponses(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}, nil}, WithMetricsPath("/metrics"))

	code, body := get(t, s, "/ping")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"n": float64(3)}, body["data"])

	code, body = get(t, s, "/ping?n=11")
	require.Equal(t, http.StatusBadRequest, code)
	errs := body["data"].([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "n", first["field"])
	assert.Equal(t, "ERR_LTE", first["code"])

	code, body = get(t, s, "/boom")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, float64(http.StatusNotFound), body["status"])

	code, _ = get(t, s, "/panic")
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, code)
}

func TestServerWithoutMetrics(t *testing.T) {
	s := NewServer(nil, nil, WithMetricsPath(""), WithCORS(false))
	code, _ := get(t, s, "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}})

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "http://dash.local")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dash.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
