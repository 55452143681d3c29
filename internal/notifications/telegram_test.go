package notifications

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTelegramNotifier_SendAlert posts the formatted alert to the bot API.
func TestTelegramNotifier_SendAlert(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
	}))
	defer srv.Close()

	n := &TelegramNotifier{baseURL: srv.URL, token: "TOKEN", chatID: "42"}
	require.NoError(t, n.SendAlert("success", "BTC long opened"))

	assert.Equal(t, "42", got.Get("chat_id"))
	assert.True(t, strings.Contains(got.Get("text"), "BTC long opened"))
}

// TestTelegramNotifier_NoToken is a silent no-op when unconfigured.
func TestTelegramNotifier_NoToken(t *testing.T) {
	n := NewTelegramNotifier("", "")
	assert.NoError(t, n.SendAlert("info", "ignored"))
}

// TestTelegramNotifier_APIError surfaces non-200 responses.
func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := &TelegramNotifier{baseURL: srv.URL, token: "TOKEN", chatID: "42"}
	assert.Error(t, n.SendAlert("error", "boom"))
}
