package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusUnprocessableEntity,
		KindAuthentication: http.StatusForbidden,
		KindAuthorization:  http.StatusUnauthorized,
		KindNotFound:       http.StatusNotFound,
		KindRateLimited:    http.StatusTooManyRequests,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestFromKeepsTaxonomyThroughWrapping(t *testing.T) {
	base := NotFound("Could not find a place for the provided id.")
	wrapped := fmt.Errorf("lookup: %w", base)

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, base.Message, got.Message)
	assert.ErrorIs(t, wrapped, base)
}

func TestFromHidesForeignErrors(t *testing.T) {
	driverErr := errors.New(`pq: relation "places" does not exist`)

	got := From(driverErr)
	require.NotNil(t, got)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, unknownMessage, got.Message)
	assert.ErrorIs(t, got, driverErr)
	assert.Nil(t, From(nil))
}
