package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConviteStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		invite   Convite
		expected ConviteStatus
	}{
		{"pending before expiry", Convite{ExpiresAt: now.Add(time.Hour)}, ConvitePending},
		{"accepted before expiry", Convite{ExpiresAt: now.Add(time.Hour), Accepted: true}, ConviteAccepted},
		{"expired wins over accepted", Convite{ExpiresAt: now.Add(-time.Second), Accepted: true}, ConviteExpired},
		{"exact expiry instant is still valid", Convite{ExpiresAt: now}, ConvitePending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.invite.StatusAt(now))
		})
	}
}

func TestBaseBeforeCreate(t *testing.T) {
	var b Base
	assert.NoError(t, b.BeforeCreate(nil))
	assert.Len(t, b.ID, 36)

	kept := Base{ID: "fixed"}
	assert.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
}

func TestEmailTemplateVariables(t *testing.T) {
	tpl := EmailTemplate{Variables: EncodeVariables([]string{"name", "inviteUrl"})}
	assert.Equal(t, []string{"name", "inviteUrl"}, tpl.VariableNames())

	assert.JSONEq(t, `[]`, string(EncodeVariables(nil)))
	assert.Nil(t, EmailTemplate{}.VariableNames())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, RoleSindicatoAdmin.Valid())
	assert.False(t, Role("OWNER").Valid())
	assert.True(t, DocumentoConvencaoColetiva.Valid())
	assert.False(t, DocumentoTipo("CARTA").Valid())
	assert.True(t, TemplatePersonalizado.Valid())
	assert.False(t, EmailTemplateTipo("NEWSLETTER").Valid())

	sid := "s1"
	assert.True(t, User{SindicatoID: &sid}.BelongsTo("s1"))
	assert.False(t, User{}.BelongsTo("s1"))
}
