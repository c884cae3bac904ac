package identity

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

func TestSupabase(t *testing.T) {
	t.Run("Should create a confirmed user with metadata", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
			assert.Equal(t, "service-key", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

			var body adminUserRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.True(t, body.EmailConfirm)
			assert.Equal(t, "ana@x.org", body.Email)
			assert.Equal(t, "MEMBER", body.UserMetadata["role"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"ext-1","email":"ana@x.org"}`))
		}))
		defer srv.Close()

		p := New(config.SupabaseConfig{URL: srv.URL, ServiceKey: "service-key"})
		id, err := p.CreateUser(context.Background(), NewUser{Email: "ana@x.org", Password: "12345678", Name: "Ana", Role: "MEMBER"})

		require.NoError(t, err)
		assert.Equal(t, "ext-1", id)
	})

	t.Run("Should report provider errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"A user with this email address has already been registered"}`))
		}))
		defer srv.Close()

		_, err := NewSupabase(config.SupabaseConfig{URL: srv.URL, ServiceKey: "k"}).
			CreateUser(context.Background(), NewUser{Email: "ana@x.org", Password: "12345678"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already been registered")
	})

	t.Run("Should delete by id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/auth/v1/admin/users/ext-9", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		assert.NoError(t, NewSupabase(config.SupabaseConfig{URL: srv.URL, ServiceKey: "k"}).DeleteUser(context.Background(), "ext-9"))
	})

	t.Run("Should be a no-op when not configured", func(t *testing.T) {
		p := New(config.SupabaseConfig{})
		_, err := p.CreateUser(context.Background(), NewUser{})
		assert.ErrorIs(t, err, ErrDisabled)
	})
}
