package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type EmailTemplateTipo string

const (
	TemplateConviteSindicato   EmailTemplateTipo = "CONVITE_SINDICATO"
	TemplateConviteMembro      EmailTemplateTipo = "CONVITE_MEMBRO"
	TemplateBoasVindas         EmailTemplateTipo = "BOAS_VINDAS"
	TemplateSindicatoAprovado  EmailTemplateTipo = "SINDICATO_APROVADO"
	TemplateSindicatoRejeitado EmailTemplateTipo = "SINDICATO_REJEITADO"
	TemplatePersonalizado      EmailTemplateTipo = "PERSONALIZADO"
)

func (t EmailTemplateTipo) Valid() bool {
	switch t {
	case TemplateConviteSindicato, TemplateConviteMembro, TemplateBoasVindas,
		TemplateSindicatoAprovado, TemplateSindicatoRejeitado, TemplatePersonalizado:
		return true
	}
	return false
}

type EmailTemplate struct {
	Base
	Name        string            `gorm:"uniqueIndex;size:120;not null" json:"name"`
	Subject     string            `gorm:"size:255;not null" json:"subject"`
	HTMLContent string            `gorm:"type:text;not null" json:"htmlContent"`
	TextContent string            `gorm:"type:text" json:"textContent,omitempty"`
	Variables   datatypes.JSON    `json:"variables"`
	Type        EmailTemplateTipo `gorm:"size:32;not null;index" json:"type"`
	Active      bool              `gorm:"not null;default:true" json:"active"`
	CreatedByID *string           `gorm:"size:36" json:"createdById,omitempty"`
}

// VariableNames decodes the declared placeholder list.
func (t EmailTemplate) VariableNames() []string {
	var names []string
	if len(t.Variables) > 0 {
		_ = json.Unmarshal(t.Variables, &names)
	}
	return names
}

func EncodeVariables(names []string) datatypes.JSON {
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(names)
	return datatypes.JSON(b)
}
