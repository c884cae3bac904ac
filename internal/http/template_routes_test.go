package httpserver

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplateRoutes(t *testing.T) {
	e := newEnv(t)

	var id string
	t.Run("Should create a template and derive its variables", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/email-templates", gin.H{
			"name":        "Aviso assembleia",
			"subject":     "Assembleia do {{sindicatoName}}",
			"htmlContent": "<p>Olá {{name}}</p>{{#if data}}<p>{{data}}</p>{{/if}}",
			"type":        "PERSONALIZADO",
		}, &e.admin)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		tpl := decode(t, w)["template"].(map[string]any)
		id = tpl["id"].(string)
		assert.Equal(t, true, tpl["active"])
		assert.ElementsMatch(t, []any{"sindicatoName", "name", "data"}, tpl["variables"])
	})

	t.Run("Should reject duplicate names and unknown types", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/email-templates", gin.H{
			"name": "AVISO ASSEMBLEIA", "subject": "x", "htmlContent": "x", "type": "PERSONALIZADO",
		}, &e.admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = e.do(http.MethodPost, "/api/v1/email-templates", gin.H{
			"name": "Outro", "subject": "x", "htmlContent": "x", "type": "NEWSLETTER",
		}, &e.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should preview with escaped HTML values and stripped conditionals", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/email-templates/"+id+"/preview", gin.H{
			"variables": gin.H{"name": "<Ana>", "sindicatoName": "Sinfar", "data": "10/03"},
		}, &e.admin)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Assembleia do Sinfar", body["subject"])
		assert.Equal(t, "<p>Olá &lt;Ana&gt;</p>", body["html"])
	})

	t.Run("Should send a test e-mail", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/email-templates/"+id+"/test", gin.H{
			"to": "qa@fenafar.org.br", "variables": gin.H{"sindicatoName": "Teste"},
		}, &e.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"qa@fenafar.org.br|Assembleia do Teste"}, e.mailer.delivered)

		e.mailer.err = assert.AnError
		w = e.do(http.MethodPost, "/api/v1/email-templates/"+id+"/test", gin.H{"to": "qa@fenafar.org.br"}, &e.admin)
		e.mailer.err = nil
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("Should update, list and delete", func(t *testing.T) {
		w := e.do(http.MethodPut, "/api/v1/email-templates/"+id, gin.H{
			"name": "Aviso assembleia", "subject": "Novo assunto", "htmlContent": "<p>{{name}}</p>", "type": "PERSONALIZADO", "active": false,
		}, &e.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		tpl := decode(t, w)["template"].(map[string]any)
		assert.Equal(t, false, tpl["active"])
		assert.Equal(t, []any{"name"}, tpl["variables"])

		w = e.do(http.MethodGet, "/api/v1/email-templates?active=false", nil, &e.admin)
		assert.EqualValues(t, 1, decode(t, w)["total"])

		w = e.do(http.MethodGet, "/api/v1/email-templates/builtin", nil, &e.admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["data"], 5)

		w = e.do(http.MethodDelete, "/api/v1/email-templates/"+id, nil, &e.admin)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = e.do(http.MethodGet, "/api/v1/email-templates/"+id, nil, &e.admin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuditRoutes(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 3; i++ {
		w := e.do(http.MethodPost, "/api/v1/invites", gin.H{"email": "c" + strconv.Itoa(i) + "@sinfarsp.org.br", "role": "MEMBER"}, &e.sAdmin)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := e.do(http.MethodPost, "/api/v1/sindicatos", gin.H{"name": "Outro", "cnpj": cnpjB}, &e.admin)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("Should page backwards with a cursor", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/audit?limit=2&q=convite", nil, &e.admin)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		require.Len(t, body["logs"], 2)
		cursor := body["next_cursor"].(float64)

		w = e.do(http.MethodGet, "/api/v1/audit?limit=2&q=convite&after_id="+strconv.FormatFloat(cursor, 'f', 0, 64), nil, &e.admin)
		body = decode(t, w)
		require.Len(t, body["logs"], 1)
		assert.Nil(t, body["next_cursor"])
	})

	t.Run("Should scope union admins to their union", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/audit?action=sindicato.create", nil, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode(t, w)["logs"])

		w = e.do(http.MethodGet, "/api/v1/audit?action=convite.create", nil, &e.sAdmin)
		assert.Len(t, decode(t, w)["logs"], 3)
	})
}
