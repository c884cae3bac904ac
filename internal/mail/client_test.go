package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenafar_admin/internal/config"
)

func TestClient_Send(t *testing.T) {
	t.Run("Should post the message with sender identity and api key", func(t *testing.T) {
		var got sendRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/smtp/email", r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("api-key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"messageId":"<msg-1@relay>"}`))
		}))
		defer srv.Close()

		c := NewClient(config.EmailConfig{APIKey: "secret-key", APIURL: srv.URL, FromAddress: "no-reply@fenafar.org.br", FromName: "FENAFAR"})
		id, err := c.Send(context.Background(), Message{To: "ana@x.org", ToName: "Ana", Subject: "Oi", HTML: "<p>Oi</p>", Text: "Oi"})

		require.NoError(t, err)
		assert.Equal(t, "<msg-1@relay>", id)
		assert.Equal(t, "no-reply@fenafar.org.br", got.Sender.Email)
		assert.Equal(t, "FENAFAR", got.Sender.Name)
		assert.Equal(t, []contact{{Email: "ana@x.org", Name: "Ana"}}, got.To)
		assert.Equal(t, "<p>Oi</p>", got.HTMLContent)
	})

	t.Run("Should surface provider errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"Key not found"}`))
		}))
		defer srv.Close()

		c := NewClient(config.EmailConfig{APIKey: "bad", APIURL: srv.URL})
		_, err := c.Send(context.Background(), Message{To: "ana@x.org", Subject: "Oi"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Key not found")
	})

	t.Run("Should refuse to send without an api key", func(t *testing.T) {
		c := NewClient(config.EmailConfig{})
		_, err := c.Send(context.Background(), Message{To: "ana@x.org"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
