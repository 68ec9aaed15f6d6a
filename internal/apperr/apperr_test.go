package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
		kind   Kind
	}{
		{"validation", Validation("bad"), http.StatusUnprocessableEntity, KindValidation},
		{"authentication", Authentication("no", nil), http.StatusForbidden, KindAuthentication},
		{"unknown account", UnknownAccount("who"), http.StatusForbidden, KindNotFound},
		{"invalid credentials", InvalidCredentials("nope"), http.StatusUnauthorized, KindInvalidCredentials},
		{"authorization", Authorization("not yours"), http.StatusUnauthorized, KindAuthorization},
		{"not found", NotFound("gone"), http.StatusNotFound, KindNotFound},
		{"storage", Storage("db", errors.New("boom")), http.StatusInternalServerError, KindStorage},
		{"upstream", Upstream(http.StatusBadGateway, "geo", nil), http.StatusBadGateway, KindUpstream},
		{"upstream fallback", Upstream(0, "geo", nil), http.StatusInternalServerError, KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("tagged error passes through wrapping", func(t *testing.T) {
		orig := NotFound("Could not find a place for the provided id.")
		wrapped := fmt.Errorf("get place: %w", orig)

		got := From(wrapped)
		require.NotNil(t, got)
		assert.Same(t, orig, got)
	})

	t.Run("plain error defaults to 500", func(t *testing.T) {
		cause := errors.New("connection reset")
		got := From(cause)

		require.NotNil(t, got)
		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.Equal(t, KindInternal, got.Kind)
		assert.ErrorIs(t, got, cause)
	})

	t.Run("missing status defaults to 500", func(t *testing.T) {
		got := From(&Error{Kind: KindStorage, Message: "x"})
		assert.Equal(t, http.StatusInternalServerError, got.Status)
	})
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Authorization("You are not allowed to edit this place."))

	assert.True(t, IsKind(err, KindAuthorization))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindAuthorization))
}

func TestWithDetailsCopies(t *testing.T) {
	base := Validation("Invalid inputs passed, please check your data.")
	withDetails := base.WithDetails([]string{"title"})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"title"}, withDetails.Details)
}
