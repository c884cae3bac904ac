// Package identity mirrors local users into the hosted auth service.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"fenafar_admin/internal/config"
)

// NewUser is what gets mirrored; the password is the one chosen at signup.
type NewUser struct {
	Email    string
	Password string
	Name     string
	Role     string
}

type Provider interface {
	CreateUser(ctx context.Context, u NewUser) (externalID string, err error)
	DeleteUser(ctx context.Context, externalID string) error
}

var ErrDisabled = errors.New("identity provider not configured")

// New returns the Supabase provider when configured, Noop otherwise.
func New(cfg config.SupabaseConfig) Provider {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return Noop{}
	}
	return NewSupabase(cfg)
}

type Noop struct{}

func (Noop) CreateUser(context.Context, NewUser) (string, error) { return "", ErrDisabled }
func (Noop) DeleteUser(context.Context, string) error            { return ErrDisabled }

// Supabase calls the GoTrue admin API with the service role key.
type Supabase struct {
	http *resty.Client
}

type adminUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

type adminUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription} {
		if s != "" {
			return s
		}
	}
	return ""
}

func NewSupabase(cfg config.SupabaseConfig) *Supabase {
	return &Supabase{
		http: resty.New().
			SetBaseURL(cfg.URL+"/auth/v1").
			SetTimeout(10*time.Second).
			SetHeader("apikey", cfg.ServiceKey).
			SetAuthToken(cfg.ServiceKey),
	}
}

func (s *Supabase) CreateUser(ctx context.Context, u NewUser) (string, error) {
	var out adminUserResponse
	var apiErr gotrueError
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(adminUserRequest{
			Email:        u.Email,
			Password:     u.Password,
			EmailConfirm: true,
			UserMetadata: map[string]interface{}{"name": u.Name, "role": u.Role},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/admin/users")
	if err != nil {
		return "", fmt.Errorf("create auth user: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("create auth user: status %d: %s", resp.StatusCode(), apiErr.text())
	}
	if out.ID == "" {
		return "", errors.New("create auth user: empty id in response")
	}
	return out.ID, nil
}

func (s *Supabase) DeleteUser(ctx context.Context, externalID string) error {
	var apiErr gotrueError
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("id", externalID).
		SetError(&apiErr).
		Delete("/admin/users/{id}")
	if err != nil {
		return fmt.Errorf("delete auth user: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete auth user: status %d: %s", resp.StatusCode(), apiErr.text())
	}
	return nil
}
