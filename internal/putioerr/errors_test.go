package putioerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusNotFound, KindPermanent},
		{http.StatusBadRequest, KindPermanent},
		{http.StatusTeapot, KindPermanent},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			err := Classify(tc.status, nil)
			assert.Equal(t, tc.kind, err.Kind)
			assert.Equal(t, tc.status, err.StatusCode)
		})
	}
}

func TestIsTransientWrapped(t *testing.T) {
	base := Transient(http.StatusBadGateway, errors.New("boom"))
	wrapped := fmt.Errorf("calling putio: %w", base)
	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsAuth(wrapped))
	assert.False(t, IsPermanent(wrapped))
}

func TestIsAuth(t *testing.T) {
	err := Auth(http.StatusUnauthorized, errors.New("bad token"))
	assert.True(t, IsAuth(err))
	assert.False(t, IsTransient(err))
}

func TestIsPermanent(t *testing.T) {
	err := Permanent(http.StatusNotFound, errors.New("missing"))
	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsAuth(err))
}

func TestNonClassifiedError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsTransient(err))
	assert.False(t, IsAuth(err))
	assert.False(t, IsPermanent(err))
}
