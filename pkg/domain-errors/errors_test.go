package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeDigestReused, "digest already consumed")
	middle := Wrap(inner, CodeInternal, "commit failed")
	outer := fmt.Errorf("handler: %w", middle)

	require.True(t, HasCode(outer, CodeInternal))
	require.True(t, HasCode(outer, CodeDigestReused))
	require.False(t, HasCode(outer, CodeNotFound))
	require.False(t, HasCode(nil, CodeInternal))
}

func TestCodeOfReturnsOutermost(t *testing.T) {
	inner := New(CodeNotFound, "missing")
	outer := Wrap(inner, CodeInternal, "load failed")

	require.Equal(t, CodeInternal, CodeOf(outer))
	require.Equal(t, CodeNotFound, CodeOf(inner))
	require.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestUnwrapPreservesSentinels(t *testing.T) {
	sentinel := errors.New("sentinel")
	wrapped := Wrap(sentinel, CodeInternal, "store failed")
	require.ErrorIs(t, wrapped, sentinel)
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "paused: registry is paused", New(CodePaused, "registry is paused").Error())
	wrapped := Wrap(errors.New("boom"), CodeInternal, "commit failed")
	require.Equal(t, "internal: commit failed: boom", wrapped.Error())
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:      http.StatusBadRequest,
		CodeBadRequest:        http.StatusBadRequest,
		CodeUnauthorized:      http.StatusForbidden,
		CodeSignatureMismatch: http.StatusForbidden,
		CodeNotDataOwner:      http.StatusForbidden,
		CodeDigestReused:      http.StatusConflict,
		CodeAlreadyRegistered: http.StatusConflict,
		CodeConflict:          http.StatusConflict,
		CodeNotRegistered:     http.StatusNotFound,
		CodeNotFound:          http.StatusNotFound,
		CodePaused:            http.StatusServiceUnavailable,
		CodeNonTransferable:   http.StatusMethodNotAllowed,
		CodeTimeout:           http.StatusGatewayTimeout,
		CodeInternal:          http.StatusInternalServerError,
		Code("unknown"):       http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
