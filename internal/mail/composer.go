package mail

import (
	"context"
	"errors"
	"fmt"
	"html"

	"gorm.io/gorm"

	"fenafar_admin/internal/metrics"
	"fenafar_admin/internal/models"
)

// Rendered is a template after substitution.
type Rendered struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Composer resolves the template for a type, preferring an active database
// row over the compiled-in default, and hands the result to a Sender.
type Composer struct {
	db     *gorm.DB
	sender Sender
}

func NewComposer(db *gorm.DB, sender Sender) *Composer {
	return &Composer{db: db, sender: sender}
}

func FromModel(m models.EmailTemplate) Template {
	return Template{
		Name:      m.Name,
		Type:      m.Type,
		Subject:   m.Subject,
		HTML:      m.HTMLContent,
		Text:      m.TextContent,
		Variables: m.VariableNames(),
	}
}

// Apply substitutes vars into every part of tpl. Values are HTML-escaped in
// the HTML body only.
func Apply(tpl Template, vars map[string]string) Rendered {
	escaped := make(map[string]string, len(vars))
	for k, v := range vars {
		escaped[k] = html.EscapeString(v)
	}
	return Rendered{
		Subject: Render(tpl.Subject, vars),
		HTML:    Render(tpl.HTML, escaped),
		Text:    Render(tpl.Text, vars),
	}
}

func (c *Composer) Template(ctx context.Context, typ models.EmailTemplateTipo) (Template, error) {
	var row models.EmailTemplate
	err := c.db.WithContext(ctx).
		Where("type = ? AND active = ?", typ, true).
		Order("updated_at DESC").
		First(&row).Error
	if err == nil {
		return FromModel(row), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Template{}, fmt.Errorf("load email template: %w", err)
	}
	if tpl, ok := Builtin(typ); ok {
		return tpl, nil
	}
	return Template{}, fmt.Errorf("no template for type %s", typ)
}

// Send renders the template for typ and delivers it to one recipient.
func (c *Composer) Send(ctx context.Context, typ models.EmailTemplateTipo, to, toName string, vars map[string]string) error {
	tpl, err := c.Template(ctx, typ)
	if err != nil {
		metrics.RecordEmail(string(typ), err)
		return err
	}
	err = c.Deliver(ctx, tpl, to, toName, vars)
	metrics.RecordEmail(string(typ), err)
	return err
}

// Deliver sends an already resolved template.
func (c *Composer) Deliver(ctx context.Context, tpl Template, to, toName string, vars map[string]string) error {
	out := Apply(tpl, vars)
	_, err := c.sender.Send(ctx, Message{
		To:      to,
		ToName:  toName,
		Subject: out.Subject,
		HTML:    out.HTML,
		Text:    out.Text,
		Tags:    []string{string(tpl.Type)},
	})
	return err
}
