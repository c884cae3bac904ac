package mail

import "fenafar_admin/internal/models"

// Template is a subject plus HTML/text bodies with {{placeholder}} tokens.
type Template struct {
	Name      string                   `json:"name"`
	Type      models.EmailTemplateTipo `json:"type"`
	Subject   string                   `json:"subject"`
	HTML      string                   `json:"htmlContent"`
	Text      string                   `json:"textContent"`
	Variables []string                 `json:"variables"`
}

const layoutOpen = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;color:#1f2937">` +
	`<div style="background:#0b5394;color:#fff;padding:16px 24px"><strong>FENAFAR</strong> · Federação Nacional dos Farmacêuticos</div>` +
	`<div style="padding:24px">`

const layoutClose = `</div><div style="padding:12px 24px;font-size:12px;color:#6b7280">Esta é uma mensagem automática, não responda.</div></div>`

var builtins = map[models.EmailTemplateTipo]Template{
	models.TemplateConviteSindicato: {
		Name:    "convite-sindicato",
		Type:    models.TemplateConviteSindicato,
		Subject: "Convite para cadastrar o {{sindicatoName}} na FENAFAR",
		HTML: layoutOpen +
			`<p>Olá{{#if name}} {{name}}{{/if}},</p>` +
			`<p>{{invitedBy}} convidou você para administrar o sindicato <strong>{{sindicatoName}}</strong> (CNPJ {{sindicatoCnpj}}) no sistema da FENAFAR.</p>` +
			`<p><a href="{{inviteUrl}}" style="background:#0b5394;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px">Aceitar convite</a></p>` +
			`<p>O convite é válido até {{expiresAt}}.</p>` + layoutClose,
		Text: "{{invitedBy}} convidou você para administrar o sindicato {{sindicatoName}} (CNPJ {{sindicatoCnpj}}) no sistema da FENAFAR.\n" +
			"Aceite em: {{inviteUrl}}\nVálido até {{expiresAt}}.",
		Variables: []string{"name", "email", "invitedBy", "sindicatoName", "sindicatoCnpj", "inviteUrl", "expiresAt"},
	},
	models.TemplateConviteMembro: {
		Name:    "convite-membro",
		Type:    models.TemplateConviteMembro,
		Subject: "Convite para participar do {{sindicatoName}}",
		HTML: layoutOpen +
			`<p>Olá{{#if name}} {{name}}{{/if}},</p>` +
			`<p>{{invitedBy}} convidou você para fazer parte do <strong>{{sindicatoName}}</strong> no sistema da FENAFAR.</p>` +
			`<p><a href="{{inviteUrl}}" style="background:#0b5394;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px">Criar minha conta</a></p>` +
			`<p>O convite é válido até {{expiresAt}}.</p>` + layoutClose,
		Text: "{{invitedBy}} convidou você para fazer parte do {{sindicatoName}} no sistema da FENAFAR.\n" +
			"Crie sua conta em: {{inviteUrl}}\nVálido até {{expiresAt}}.",
		Variables: []string{"name", "email", "invitedBy", "sindicatoName", "inviteUrl", "expiresAt"},
	},
	models.TemplateBoasVindas: {
		Name:    "boas-vindas",
		Type:    models.TemplateBoasVindas,
		Subject: "Bem-vindo(a) à FENAFAR, {{name}}",
		HTML: layoutOpen +
			`<p>Olá {{name}},</p>` +
			`<p>Sua conta ({{email}}) foi criada com sucesso{{#if sindicatoName}} e vinculada ao {{sindicatoName}}{{/if}}.</p>` +
			`<p><a href="{{loginUrl}}">Acessar o sistema</a></p>` + layoutClose,
		Text:      "Olá {{name}}, sua conta ({{email}}) foi criada com sucesso. Acesse: {{loginUrl}}",
		Variables: []string{"name", "email", "role", "sindicatoName", "loginUrl"},
	},
	models.TemplateSindicatoAprovado: {
		Name:    "sindicato-aprovado",
		Type:    models.TemplateSindicatoAprovado,
		Subject: "Cadastro do {{sindicatoName}} aprovado",
		HTML: layoutOpen +
			`<p>Olá {{name}},</p>` +
			`<p>O cadastro do <strong>{{sindicatoName}}</strong> foi aprovado pela FENAFAR.</p>` +
			`<p><a href="{{loginUrl}}">Acessar o sistema</a></p>` + layoutClose,
		Text:      "Olá {{name}}, o cadastro do {{sindicatoName}} foi aprovado pela FENAFAR. Acesse: {{loginUrl}}",
		Variables: []string{"name", "sindicatoName", "loginUrl"},
	},
	models.TemplateSindicatoRejeitado: {
		Name:    "sindicato-rejeitado",
		Type:    models.TemplateSindicatoRejeitado,
		Subject: "Cadastro do {{sindicatoName}} não aprovado",
		HTML: layoutOpen +
			`<p>Olá {{name}},</p>` +
			`<p>O cadastro do <strong>{{sindicatoName}}</strong> não foi aprovado.</p>` +
			`{{#if reason}}<p>Motivo: {{reason}}</p>{{/if}}` +
			`<p>Em caso de dúvidas, entre em contato com a FENAFAR.</p>` + layoutClose,
		Text:      "Olá {{name}}, o cadastro do {{sindicatoName}} não foi aprovado. Motivo: {{reason}}",
		Variables: []string{"name", "sindicatoName", "reason"},
	},
}

// Builtin returns the compiled-in template for a type.
func Builtin(t models.EmailTemplateTipo) (Template, bool) {
	tpl, ok := builtins[t]
	return tpl, ok
}

// Builtins lists every compiled-in template, used by the seeder.
func Builtins() []Template {
	order := []models.EmailTemplateTipo{
		models.TemplateConviteSindicato,
		models.TemplateConviteMembro,
		models.TemplateBoasVindas,
		models.TemplateSindicatoAprovado,
		models.TemplateSindicatoRejeitado,
	}
	out := make([]Template, 0, len(order))
	for _, t := range order {
		out = append(out, builtins[t])
	}
	return out
}
