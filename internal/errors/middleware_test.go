package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		c.Error(err)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return w
}

// Errors built without an underlying cause must still render as a JSON
// response, not tear down the request.
func TestErrorHandlerRendersCauselessErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation without details",
			err:        NewValidationError("missing X-GitHub-Event header"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rate limit",
			err:        NewRateLimitError("60"),
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "configuration without cause",
			err:        NewConfigurationError("github lookups not configured", nil),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "internal without cause",
			err:        NewInternalError("unexpected state", nil),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithError(t, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response must be valid JSON")
			assert.NotEmpty(t, body["category"])
		})
	}
}

func TestErrorHandlerConvertsPlainErrors(t *testing.T) {
	w := serveWithError(t, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category"`)
}

func TestAppErrorMarshalsWithoutCause(t *testing.T) {
	data, err := json.Marshal(NewValidationError("bad input"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestNewAppErrorBackfillsCause(t *testing.T) {
	appErr := NewValidationError("bad input")
	require.NotNil(t, appErr.Unwrap())
	assert.Equal(t, "bad input", appErr.Unwrap().Error())
}
