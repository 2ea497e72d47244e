package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/suratjalan/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestBuildSuccess(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithData(map[string]string{"id": "1"}).WithMeta("count", 1).WithMeta("", "skipped").Build())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"1"},"meta":{"count":1}}`, rec.Body.String())
}

func TestBuildValidationErrorCarriesFields(t *testing.T) {
	c, rec := newContext()
	err := errorbank.Invalid("invalid delivery note", map[string]string{"vehicle_plate": "vehicle plate is required"})
	require.NoError(t, New(c).WithError(err).Build())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var payload struct {
		Success bool `json:"success"`
		Error   struct {
			Kind   string            `json:"kind"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.False(t, payload.Success)
	assert.Equal(t, "validation", payload.Error.Kind)
	assert.Equal(t, map[string]string{"vehicle_plate": "vehicle plate is required"}, payload.Error.Fields)
}

func TestBuildWrapsUnknownErrors(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithError(errors.New("disk full")).Build())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"internal"`)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).Attachment("text/csv", "report.csv", []byte("a,b\n")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="report.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
