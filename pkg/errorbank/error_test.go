package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestInvalidCarriesFields(t *testing.T) {
	err := Invalid("invalid delivery note", map[string]string{
		"vehicle_plate": "is required",
		"driver_name":   "is required",
	})

	assert.Equal(t, KindValidation, err.Kind())
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode())
	assert.Equal(t, codes.InvalidArgument, err.GRPCCode())
	assert.Equal(t, "is required", err.Fields()["vehicle_plate"])
	assert.Equal(t, "invalid delivery note (driver_name: is required; vehicle_plate: is required)", err.Error())
}

func TestFromWrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset")

	appErr := From(cause)
	assert.Equal(t, KindInternal, appErr.Kind())
	assert.ErrorIs(t, appErr, cause)

	wrapped := fmt.Errorf("outer: %w", NotFound("purchase order not found"))
	assert.Equal(t, KindNotFound, From(wrapped).Kind())
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(cause, KindNotFound))
	assert.Nil(t, From(nil))
}

func TestStatusCodes(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:          http.StatusBadRequest,
		KindConflict:            http.StatusConflict,
		KindNotFound:            http.StatusNotFound,
		KindUnprocessableEntity: http.StatusUnprocessableEntity,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, New(kind, "").StatusCode(), kind)
	}
}
