package transport

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFromStatusMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindUnauthorized},
		{"forbidden", http.StatusForbidden, KindInvalidAuth},
		{"bad request", http.StatusBadRequest, KindBadRequest},
		{"unprocessable", http.StatusUnprocessableEntity, KindBadRequest},
		{"not found", http.StatusNotFound, KindInvalidApp},
		{"gone", http.StatusGone, KindInvalidApp},
		{"server error", http.StatusInternalServerError, KindUnhandled},
		{"teapot", http.StatusTeapot, KindUnhandled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ErrorFromStatus(tc.status, "boom")
			require.Equal(t, tc.kind, err.Kind)
			require.Equal(t, tc.status, err.Status)
			require.False(t, err.Retryable())
			require.False(t, IsConnectivity(err))
			require.Contains(t, err.Error(), fmt.Sprintf("(%d)", tc.status))
		})
	}
}

func TestConnectivityErrorsAreRetryable(t *testing.T) {
	err := NewConnectivityError(errors.New("connection reset"))
	require.Equal(t, KindConnectivity, err.Kind)
	require.Zero(t, err.Status)
	require.True(t, err.Retryable())
	require.True(t, IsConnectivity(err))
	require.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("send failed: %w", err)
	require.True(t, IsConnectivity(wrapped))
	require.False(t, IsConnectivity(errors.New("plain failure")))
}
