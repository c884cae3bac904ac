package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenafar_admin/internal/dbtest"
	"fenafar_admin/internal/models"
)

func TestRecord(t *testing.T) {
	db := dbtest.New(t)
	sid := "sind-1"
	actor := models.User{Base: models.Base{ID: "user-1"}, Name: "Ana", SindicatoID: &sid}

	t.Run("Should attribute the entry to the actor and its union", func(t *testing.T) {
		err := Record(db, Entry{
			Meta:         Meta{IP: "10.0.0.1", UserAgent: "curl"},
			Actor:        &actor,
			Action:       "convite.create",
			ResourceType: "convite",
			ResourceID:   "c1",
			Metadata:     map[string]any{"email": "x@y.org"},
		})
		require.NoError(t, err)

		var row models.AuditLog
		require.NoError(t, db.Where("resource_id = ?", "c1").First(&row).Error)
		assert.Equal(t, "Ana", row.InitiatorName)
		require.NotNil(t, row.UserID)
		assert.Equal(t, "user-1", *row.UserID)
		require.NotNil(t, row.SindicatoID)
		assert.Equal(t, "sind-1", *row.SindicatoID)
		assert.JSONEq(t, `{"email":"x@y.org"}`, string(row.Metadata))
	})

	t.Run("Should allow anonymous entries", func(t *testing.T) {
		require.NoError(t, Record(db, Entry{Action: "convite.accept", ResourceType: "convite", ResourceID: "c2"}))

		var row models.AuditLog
		require.NoError(t, db.Where("resource_id = ?", "c2").First(&row).Error)
		assert.Nil(t, row.UserID)
		assert.Empty(t, row.InitiatorName)
	})
}

func TestMetaFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:5555"
	c.Request.Header.Set("User-Agent", "Mozilla")

	m := MetaFrom(c)
	assert.Equal(t, "192.0.2.7", m.IP)
	assert.Equal(t, "Mozilla", m.UserAgent)
}
