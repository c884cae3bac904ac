package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"fenafar_admin/internal/config"
)

// Supabase stores objects in a Supabase Storage bucket via its REST API.
type Supabase struct {
	http    *resty.Client
	baseURL string
	bucket  string
}

type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func NewSupabase(cfg config.SupabaseConfig, bucket string) *Supabase {
	base := cfg.URL + "/storage/v1"
	return &Supabase{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(60*time.Second).
			SetHeader("apikey", cfg.ServiceKey).
			SetAuthToken(cfg.ServiceKey),
		baseURL: base,
		bucket:  bucket,
	}
}

func (s *Supabase) objectPath(key string) string {
	return "/object/" + s.bucket + "/" + key
}

func (s *Supabase) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	var apiErr storageError
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(r).
		SetError(&apiErr).
		Post(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload object: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}

func (s *Supabase) Delete(ctx context.Context, key string) error {
	var apiErr storageError
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"prefixes": {key}}).
		SetError(&apiErr).
		Delete("/object/" + s.bucket)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete object: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}

func (s *Supabase) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/object/authenticated/" + s.bucket + "/" + key)
	if err != nil {
		return nil, fmt.Errorf("download object: %w", err)
	}
	body := resp.RawBody()
	switch {
	case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusBadRequest:
		body.Close()
		return nil, ErrNotFound
	case resp.IsError():
		body.Close()
		return nil, fmt.Errorf("download object: status %d", resp.StatusCode())
	}
	return body, nil
}

func (s *Supabase) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	var apiErr storageError
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": int(ttl.Seconds())}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/object/sign/" + s.bucket + "/" + key)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sign object url: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return s.baseURL + out.SignedURL, nil
}
