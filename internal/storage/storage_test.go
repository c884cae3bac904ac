package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenafar_admin/internal/config"
)

func TestDocumentKey(t *testing.T) {
	key := DocumentKey("s1", "Ata da Assembléia 2024.PDF")

	assert.True(t, strings.HasPrefix(key, "sindicatos/s1/"), key)
	assert.True(t, strings.HasSuffix(key, "-ata-da-assembleia-2024.pdf"), key)
	assert.True(t, strings.HasSuffix(DocumentKey("s1", "../.pdf"), "-arquivo.pdf"))
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	t.Run("Should write, read back and delete an object", func(t *testing.T) {
		key := "sindicatos/s1/doc.txt"
		require.NoError(t, store.Put(ctx, key, strings.NewReader("conteúdo"), 9, "text/plain"))

		rc, err := store.Open(ctx, key)
		require.NoError(t, err)
		b, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "conteúdo", string(b))

		require.NoError(t, store.Delete(ctx, key))
		_, err = store.Open(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
		// deleting twice is fine
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("Should refuse keys escaping the root", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, "../../etc/passwd", strings.NewReader("x"), 1, "text/plain"))
	})

	t.Run("Should not sign urls", func(t *testing.T) {
		_, err := store.SignedURL(ctx, "k", time.Minute)
		assert.ErrorIs(t, err, ErrNoSignedURL)
	})
}

func TestSupabase(t *testing.T) {
	ctx := context.Background()
	var uploaded, deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/docs/sindicatos/s1/a.pdf":
			b, _ := io.ReadAll(r.Body)
			uploaded = string(b)
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			_, _ = w.Write([]byte(`{"Key":"docs/sindicatos/s1/a.pdf"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/docs":
			var body map[string][]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			deleted = body["prefixes"][0]
			_, _ = w.Write([]byte(`[]`))
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/sign/docs/sindicatos/s1/a.pdf":
			_, _ = w.Write([]byte(`{"signedURL":"/object/sign/docs/sindicatos/s1/a.pdf?token=t"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/object/authenticated/docs/missing.pdf":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	store, err := New(config.Config{
		Supabase: config.SupabaseConfig{URL: srv.URL, ServiceKey: "key"},
		Storage:  config.StorageConfig{Driver: "supabase", Bucket: "docs"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "sindicatos/s1/a.pdf", strings.NewReader("%PDF"), 4, "application/pdf"))
	assert.Equal(t, "%PDF", uploaded)

	url, err := store.SignedURL(ctx, "sindicatos/s1/a.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/docs/sindicatos/s1/a.pdf?token=t", url)

	_, err = store.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "sindicatos/s1/a.pdf"))
	assert.Equal(t, "sindicatos/s1/a.pdf", deleted)
}
