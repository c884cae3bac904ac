package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenafar_admin/internal/dbtest"
	"fenafar_admin/internal/models"
)

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "id", nil
}

func TestComposer(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fall back to the built-in template", func(t *testing.T) {
		db := dbtest.New(t)
		s := &fakeSender{}
		c := NewComposer(db, s)

		err := c.Send(ctx, models.TemplateSindicatoRejeitado, "ana@x.org", "Ana", map[string]string{
			"name": "Ana", "sindicatoName": "SINFAR-RJ", "reason": "documentação incompleta",
		})

		require.NoError(t, err)
		require.Len(t, s.sent, 1)
		msg := s.sent[0]
		assert.Equal(t, "Cadastro do SINFAR-RJ não aprovado", msg.Subject)
		assert.NotContains(t, msg.HTML, "{{")
		// the conditional block is dropped even though reason was provided
		assert.NotContains(t, msg.HTML, "documentação incompleta")
		assert.Contains(t, msg.Text, "documentação incompleta")
	})

	t.Run("Should prefer an active database template", func(t *testing.T) {
		db := dbtest.New(t)
		require.NoError(t, db.Create(&models.EmailTemplate{
			Name: "boas-vindas-custom", Type: models.TemplateBoasVindas, Active: true,
			Subject: "Oi {{name}}", HTMLContent: "<b>{{name}}</b>", TextContent: "{{name}}",
			Variables: models.EncodeVariables([]string{"name"}),
		}).Error)
		s := &fakeSender{}

		err := NewComposer(db, s).Send(ctx, models.TemplateBoasVindas, "ana@x.org", "", map[string]string{"name": "<Ana>"})

		require.NoError(t, err)
		assert.Equal(t, "Oi <Ana>", s.sent[0].Subject)
		assert.Equal(t, "<b>&lt;Ana&gt;</b>", s.sent[0].HTML)
		assert.Equal(t, []string{"BOAS_VINDAS"}, s.sent[0].Tags)
	})

	t.Run("Should ignore inactive database templates", func(t *testing.T) {
		db := dbtest.New(t)
		row := models.EmailTemplate{Name: "off", Type: models.TemplateBoasVindas, Active: true, Subject: "custom", HTMLContent: "x"}
		require.NoError(t, db.Create(&row).Error)
		require.NoError(t, db.Model(&row).Update("active", false).Error)

		tpl, err := NewComposer(db, &fakeSender{}).Template(ctx, models.TemplateBoasVindas)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tpl.Subject, "Bem-vindo"))
	})

	t.Run("Should return sender errors", func(t *testing.T) {
		db := dbtest.New(t)
		err := NewComposer(db, &fakeSender{err: errors.New("provider down")}).
			Send(ctx, models.TemplateBoasVindas, "ana@x.org", "", nil)
		assert.EqualError(t, err, "provider down")
	})

	t.Run("Should fail for a type without any template", func(t *testing.T) {
		db := dbtest.New(t)
		_, err := NewComposer(db, &fakeSender{}).Template(ctx, models.TemplatePersonalizado)
		assert.Error(t, err)
	})
}

func TestBuiltinsDeclareTheirPlaceholders(t *testing.T) {
	for _, tpl := range Builtins() {
		for _, name := range Placeholders(tpl.Subject, tpl.HTML, tpl.Text) {
			assert.Contains(t, tpl.Variables, name, "%s uses undeclared {{%s}}", tpl.Name, name)
		}
	}
}
