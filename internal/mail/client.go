package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"fenafar_admin/internal/config"
)

var ErrNotConfigured = errors.New("email provider not configured")

// Message is one outbound transactional e-mail.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
	Tags    []string
}

// Sender delivers a message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Client talks to the transactional e-mail provider's REST API.
type Client struct {
	http        *resty.Client
	apiKey      string
	fromAddress string
	fromName    string
}

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
	TextContent string    `json:"textContent,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewClient(cfg config.EmailConfig) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.APIURL).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("api-key", cfg.APIKey),
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if msg.To == "" {
		return "", errors.New("message has no recipient")
	}

	var out sendResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			Sender:      contact{Email: c.fromAddress, Name: c.fromName},
			To:          []contact{{Email: msg.To, Name: msg.ToName}},
			Subject:     msg.Subject,
			HTMLContent: msg.HTML,
			TextContent: msg.Text,
			Tags:        msg.Tags,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/smtp/email")
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return "", fmt.Errorf("email provider returned %d: %s (%s)", resp.StatusCode(), apiErr.Message, apiErr.Code)
		}
		return "", fmt.Errorf("email provider returned %d", resp.StatusCode())
	}
	return out.MessageID, nil
}
