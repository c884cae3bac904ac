package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fenafar_admin/internal/models"
)

func TestSindicatoRoutes(t *testing.T) {
	e := newEnv(t)

	t.Run("Should create an approved union from the admin form", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/sindicatos", gin.H{
			"name": "Sindicato dos Farmacêuticos do RS", "cnpj": "12.345.678/0001-95", "state": "rs", "zipCode": "90000-000",
		}, &e.admin)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		s := decode(t, w)["sindicato"].(map[string]any)
		assert.Equal(t, cnpjB, s["cnpj"])
		assert.Equal(t, "APPROVED", s["status"])
		assert.Equal(t, "sindicato-dos-farmaceuticos-do-rs", s["slug"])
		assert.Equal(t, "RS", s["state"])
		assert.Equal(t, "90000000", s["zipCode"])
	})

	t.Run("Should reject duplicate and malformed CNPJs", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/sindicatos", gin.H{"name": "Outro", "cnpj": cnpjB}, &e.admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = e.do(http.MethodPost, "/api/v1/sindicatos", gin.H{"name": "Outro", "cnpj": "12.345.678/0001-00"}, &e.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should scope lists to the caller's union", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/sindicatos", nil, &e.admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, decode(t, w)["total"])

		w = e.do(http.MethodGet, "/api/v1/sindicatos?pageSize=1", nil, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["total"])
		assert.EqualValues(t, 1, body["pageSize"])
		assert.Equal(t, "Sinfar SP", body["data"].([]any)[0].(map[string]any)["name"])

		w = e.do(http.MethodGet, "/api/v1/sindicatos?q=rs", nil, &e.admin)
		assert.EqualValues(t, 1, decode(t, w)["total"])
	})

	t.Run("Should hide other unions from union admins", func(t *testing.T) {
		var other models.Sindicato
		require.NoError(t, e.db.First(&other, "cnpj = ?", cnpjB).Error)

		w := e.do(http.MethodGet, "/api/v1/sindicatos/"+other.ID, nil, &e.sAdmin)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(http.MethodGet, "/api/v1/sindicatos/"+e.sind.ID, nil, &e.member)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, decode(t, w)["memberCount"])
	})

	t.Run("Should let union admins edit contact data but not the CNPJ", func(t *testing.T) {
		w := e.do(http.MethodPut, "/api/v1/sindicatos/"+e.sind.ID, gin.H{"name": "Sinfar SP", "city": "São Paulo"}, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "São Paulo", decode(t, w)["sindicato"].(map[string]any)["city"])

		w = e.do(http.MethodPut, "/api/v1/sindicatos/"+e.sind.ID, gin.H{"name": "Sinfar SP", "cnpj": cnpjC}, &e.sAdmin)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(http.MethodPost, "/api/v1/sindicatos/"+e.sind.ID+"/deactivate", nil, &e.sAdmin)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should review pending unions and notify the admin", func(t *testing.T) {
		pending := models.Sindicato{Name: "Sind PE", CNPJ: cnpjC, Slug: "sind-pe", Email: "contato@sindpe.org.br", Status: models.SindicatoPending, Active: true}
		require.NoError(t, e.db.Create(&pending).Error)
		base := "/api/v1/sindicatos/" + pending.ID

		w := e.do(http.MethodPost, base+"/reject", gin.H{}, &e.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(http.MethodPost, base+"/reject", gin.H{"reason": "Documentação incompleta"}, &e.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		s := decode(t, w)["sindicato"].(map[string]any)
		assert.Equal(t, "REJECTED", s["status"])
		assert.Equal(t, "Documentação incompleta", s["rejectionReason"])

		w = e.do(http.MethodPost, base+"/approve", nil, &e.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		s = decode(t, w)["sindicato"].(map[string]any)
		assert.Equal(t, "APPROVED", s["status"])
		assert.Empty(t, s["rejectionReason"])

		w = e.do(http.MethodPost, base+"/approve", nil, &e.admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		assert.Equal(t, []models.EmailTemplateTipo{models.TemplateSindicatoRejeitado, models.TemplateSindicatoAprovado}, e.mailer.sent)
	})

	t.Run("Should toggle activity and refuse to delete unions with members", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/sindicatos/"+e.sind.ID+"/deactivate", nil, &e.admin)
		require.Equal(t, http.StatusOK, w.Code)
		w = e.do(http.MethodGet, "/api/v1/sindicatos?active=false", nil, &e.admin)
		assert.EqualValues(t, 1, decode(t, w)["total"])

		w = e.do(http.MethodDelete, "/api/v1/sindicatos/"+e.sind.ID, nil, &e.admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		var empty models.Sindicato
		require.NoError(t, e.db.First(&empty, "cnpj = ?", cnpjB).Error)
		w = e.do(http.MethodDelete, "/api/v1/sindicatos/"+empty.ID, nil, &e.admin)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Should count dashboard stats per scope", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/stats", nil, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["sindicatos"].(map[string]any)["total"])
		assert.EqualValues(t, 2, body["members"].(map[string]any)["total"])
	})

	t.Run("Should fail instead of reporting a zero member count", func(t *testing.T) {
		const name = "test:fail_member_count"
		require.NoError(t, e.db.Callback().Query().Before("gorm:query").Register(name, func(d *gorm.DB) {
			if _, ok := d.Statement.Dest.(*int64); ok && d.Statement.Table == "users" {
				_ = d.AddError(errors.New("count unavailable"))
			}
		}))
		t.Cleanup(func() { _ = e.db.Callback().Query().Remove(name) })

		w := e.do(http.MethodGet, "/api/v1/sindicatos/"+e.sind.ID, nil, &e.admin)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "memberCount")
	})
}

func TestMemberRoutes(t *testing.T) {
	e := newEnv(t)

	t.Run("Should pin members created by union admins to their union", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/members", gin.H{
			"email": "Novo@SinfarSP.org.br", "name": "Novo", "password": password, "cpf": "123.456.789-09",
		}, &e.sAdmin)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		m := decode(t, w)["member"].(map[string]any)
		assert.Equal(t, "novo@sinfarsp.org.br", m["email"])
		assert.Equal(t, e.sind.ID, m["sindicatoId"])
		assert.Equal(t, "MEMBER", m["role"])
		assert.Equal(t, "12345678909", m["cpf"])
	})

	t.Run("Should reject duplicate e-mail and CPF", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/members", gin.H{"email": e.member.Email, "name": "X", "password": password}, &e.sAdmin)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = e.do(http.MethodPost, "/api/v1/members", gin.H{"email": "y@y.org", "name": "Y", "password": password, "cpf": "12345678909"}, &e.sAdmin)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = e.do(http.MethodPost, "/api/v1/members", gin.H{"email": "z@y.org", "name": "Z", "password": password, "cpf": "11111111111"}, &e.sAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should keep union admins from creating admins", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/v1/members", gin.H{"email": "a@y.org", "name": "A", "password": password, "role": "SINDICATO_ADMIN"}, &e.sAdmin)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(http.MethodPost, "/api/v1/members", gin.H{
			"email": "a@y.org", "name": "A", "password": password, "role": "SINDICATO_ADMIN", "sindicatoId": e.sind.ID,
		}, &e.admin)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("Should list and search members of the union", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/members?q=novo", nil, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode(t, w)["total"])

		w = e.do(http.MethodGet, "/api/v1/members?role=MEMBER", nil, &e.admin)
		assert.EqualValues(t, 2, decode(t, w)["total"])

		w = e.do(http.MethodGet, "/api/v1/members/"+e.admin.ID, nil, &e.sAdmin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should update, deactivate and delete members", func(t *testing.T) {
		base := "/api/v1/members/" + e.member.ID
		w := e.do(http.MethodPut, base, gin.H{"name": "Sócio Silva", "crf": "SP-12345"}, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "SP-12345", decode(t, w)["member"].(map[string]any)["crf"])

		w = e.do(http.MethodPut, base, gin.H{"name": "Sócio Silva", "role": "FENAFAR_ADMIN"}, &e.sAdmin)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(http.MethodPost, base+"/deactivate", nil, &e.sAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		w = e.do(http.MethodGet, "/api/v1/me", nil, &e.member)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(http.MethodPost, "/api/v1/members/"+e.sAdmin.ID+"/deactivate", nil, &e.sAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(http.MethodDelete, base, nil, &e.sAdmin)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = e.do(http.MethodGet, base, nil, &e.admin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("Should remove and revoke the provider account of a deleted member", func(t *testing.T) {
		linked := e.user("linked@sinfarsp.org.br", "Vinculado", models.RoleMember, &e.sind.ID)
		require.NoError(t, e.db.Model(&linked).Update("external_id", "ext-123").Error)

		w := e.do(http.MethodDelete, "/api/v1/members/"+linked.ID, nil, &e.sAdmin)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.Equal(t, []string{"ext-123"}, e.idp.deleted)

		var rev models.RevokedIdentity
		require.NoError(t, e.db.First(&rev, "external_id = ?", "ext-123").Error)
		assert.Equal(t, linked.Email, rev.Email)

		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":           "ext-123",
			"email":         linked.Email,
			"exp":           time.Now().Add(time.Hour).Unix(),
			"user_metadata": map[string]interface{}{"email_verified": true},
		}).SignedString([]byte(providerSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w = e.serve(req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var n int64
		e.db.Model(&models.User{}).Where("email = ?", linked.Email).Count(&n)
		assert.Zero(t, n)
	})
}
