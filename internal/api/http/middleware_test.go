package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/observability"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

func TestErrorHandlingMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	app.Get("/conflict", func(*fiber.Ctx) error {
		return apperrors.NewConflict("invalid status transition", map[string]any{"from": "Fulfilled"})
	})
	app.Get("/group", func(*fiber.Ctx) error {
		_, err := domain.ParseBloodGroup("Z")
		return err
	})
	app.Get("/store", func(*fiber.Ctx) error {
		return apperrors.NewStoreUnavailable(errors.New("dial tcp: refused"))
	})
	app.Get("/panic", func(*fiber.Ctx) error {
		panic("boom")
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{path: "/conflict", status: http.StatusConflict, code: "CONFLICT"},
		{path: "/group", status: http.StatusBadRequest, code: "INVALID_BLOOD_GROUP"},
		{path: "/store", status: http.StatusServiceUnavailable, code: "STORE_UNAVAILABLE"},
		{path: "/panic", status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
		{path: "/missing", status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var body struct {
				Error struct {
					Code    string         `json:"code"`
					Message string         `json:"message"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Errors["/store|GET|STORE_UNAVAILABLE"])
	assert.Equal(t, int64(1), snap.Requests["/store|GET|503"])
	assert.Equal(t, int64(1), snap.Requests["/conflict|GET|409"])
	assert.Zero(t, snap.Requests["/store|GET|200"])
}

func TestMetrics_KeyedByRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	app.Get("/requests/:id", func(*fiber.Ctx) error {
		return apperrors.NewNotFound("blood request", nil)
	})

	for _, id := range []string{"a1", "b2"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/requests/"+id, nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/requests/:id|GET|404"])
	assert.Equal(t, int64(2), snap.Errors["/requests/:id|GET|NOT_FOUND"])
}
