package apierr

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(KindSessionExpired, "session has expired")
		assert.Equal(t, "SESSION_EXPIRED: session has expired", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := Wrap(KindNetworkUnreachable, "server unreachable", cause)
		assert.Contains(t, err.Error(), "NETWORK_UNREACHABLE")
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("As recognizes classified errors", func(t *testing.T) {
		apiErr, ok := As(New(KindUnauthorized, "no token"))
		require.True(t, ok)
		assert.Equal(t, KindUnauthorized, apiErr.Kind)

		_, ok = As(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("KindOf returns generic for foreign errors", func(t *testing.T) {
		assert.Equal(t, KindGeneric, KindOf(errors.New("plain")))
		assert.Equal(t, KindSessionInvalid, KindOf(New(KindSessionInvalid, "x")))
	})
}

func TestKindPredicates(t *testing.T) {
	t.Run("auth failures", func(t *testing.T) {
		assert.True(t, IsAuthFailure(KindUnauthorized))
		assert.True(t, IsAuthFailure(KindSessionInvalid))
		assert.True(t, IsAuthFailure(KindSessionExpired))
		assert.False(t, IsAuthFailure(KindRateLimited))
		assert.False(t, IsAuthFailure(KindPairingCodeInvalid))
	})

	t.Run("pairing failures", func(t *testing.T) {
		assert.True(t, IsPairingFailure(KindPairingCodeInvalid))
		assert.True(t, IsPairingFailure(KindPairingCodeExpired))
		assert.True(t, IsPairingFailure(KindPairingRateLimited))
		assert.True(t, IsPairingFailure(KindSessionLimitReached))
		assert.False(t, IsPairingFailure(KindUnauthorized))
	})
}

func TestClassify(t *testing.T) {
	t.Run("transport failure wins", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := Classify(0, nil, nil, cause)
		require.NotNil(t, err)
		assert.Equal(t, KindNetworkUnreachable, err.Kind)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("successful envelope classifies as nil", func(t *testing.T) {
		err := Classify(http.StatusOK, nil, &Envelope{Success: true}, nil)
		assert.Nil(t, err)
	})

	t.Run("429 reads Retry-After header", func(t *testing.T) {
		header := http.Header{}
		header.Set("Retry-After", "30")
		err := Classify(http.StatusTooManyRequests, header, nil, nil)
		require.NotNil(t, err)
		assert.Equal(t, KindRateLimited, err.Kind)
		assert.Equal(t, 30*time.Second, err.RetryAfter)
	})

	t.Run("429 without Retry-After defaults to 60s", func(t *testing.T) {
		err := Classify(http.StatusTooManyRequests, http.Header{}, nil, nil)
		require.NotNil(t, err)
		assert.Equal(t, DefaultRetryAfter, err.RetryAfter)
	})

	t.Run("429 with malformed Retry-After defaults to 60s", func(t *testing.T) {
		header := http.Header{}
		header.Set("Retry-After", "soon")
		err := Classify(http.StatusTooManyRequests, header, nil, nil)
		require.NotNil(t, err)
		assert.Equal(t, DefaultRetryAfter, err.RetryAfter)
	})

	t.Run("classifies session-auth codes", func(t *testing.T) {
		tests := []struct {
			code string
			kind Kind
		}{
			{"UNAUTHORIZED", KindUnauthorized},
			{"SESSION_INVALID", KindSessionInvalid},
			{"SESSION_EXPIRED", KindSessionExpired},
		}
		for _, tt := range tests {
			env := &Envelope{Success: false, Error: "denied", Code: tt.code}
			err := Classify(http.StatusForbidden, nil, env, nil)
			require.NotNil(t, err, tt.code)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, "denied", err.Message)
		}
	})

	t.Run("classifies pairing codes", func(t *testing.T) {
		tests := []struct {
			code string
			kind Kind
		}{
			{"PAIRING_CODE_INVALID", KindPairingCodeInvalid},
			{"PAIRING_CODE_EXPIRED", KindPairingCodeExpired},
			{"PAIRING_RATE_LIMITED", KindPairingRateLimited},
			{"SESSION_LIMIT_REACHED", KindSessionLimitReached},
		}
		for _, tt := range tests {
			env := &Envelope{Success: false, Error: "pairing failed", Code: tt.code}
			err := Classify(http.StatusBadRequest, nil, env, nil)
			require.NotNil(t, err, tt.code)
			assert.Equal(t, tt.kind, err.Kind)
		}
	})

	t.Run("bare 401 without envelope code is unauthorized", func(t *testing.T) {
		err := Classify(http.StatusUnauthorized, nil, &Envelope{Success: false}, nil)
		require.NotNil(t, err)
		assert.Equal(t, KindUnauthorized, err.Kind)
	})

	t.Run("unknown failure is generic with server message", func(t *testing.T) {
		env := &Envelope{Success: false, Error: "device not found", Code: "NOT_FOUND"}
		err := Classify(http.StatusNotFound, nil, env, nil)
		require.NotNil(t, err)
		assert.Equal(t, KindGeneric, err.Kind)
		assert.Equal(t, "device not found", err.Message)
	})
}

func TestClassifyStatus(t *testing.T) {
	t.Run("2xx is success", func(t *testing.T) {
		assert.Nil(t, ClassifyStatus(http.StatusOK, nil))
		assert.Nil(t, ClassifyStatus(http.StatusNoContent, nil))
	})

	t.Run("non-2xx is generic regardless of body convention", func(t *testing.T) {
		err := ClassifyStatus(http.StatusServiceUnavailable, nil)
		require.NotNil(t, err)
		assert.Equal(t, KindGeneric, err.Kind)
	})

	t.Run("transport failure is network unreachable", func(t *testing.T) {
		err := ClassifyStatus(0, errors.New("no route to host"))
		require.NotNil(t, err)
		assert.Equal(t, KindNetworkUnreachable, err.Kind)
	})
}
