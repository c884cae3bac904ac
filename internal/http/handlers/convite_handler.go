package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/models"
)

func CreateInvite(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in struct {
			Email         string      `json:"email" binding:"required,email"`
			Name          string      `json:"name" binding:"max=200"`
			Role          models.Role `json:"role" binding:"required"`
			SindicatoID   string      `json:"sindicatoId"`
			SindicatoName string      `json:"sindicatoName" binding:"max=200"`
			SindicatoCNPJ string      `json:"sindicatoCnpj" binding:"omitempty,cnpj"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.Create(c.Request.Context(), u, invite.CreateInput{
			Email:         in.Email,
			Name:          in.Name,
			Role:          models.Role(strings.ToUpper(string(in.Role))),
			SindicatoID:   in.SindicatoID,
			SindicatoName: in.SindicatoName,
			SindicatoCNPJ: in.SindicatoCNPJ,
		}, audit.MetaFrom(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"invite":     res.Invite,
			"inviteUrl":  svc.URL(res.Invite.ID),
			"emailSent":  res.EmailSent,
			"emailError": res.EmailError,
		})
	}
}

func ListInvites(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		page, size := pageParams(c)
		rows, total, err := svc.List(c.Request.Context(), u, invite.ListFilter{
			Status:      models.ConviteStatus(strings.ToLower(c.Query("status"))),
			SindicatoID: c.Query("sindicatoId"),
			Q:           c.Query("q"),
			Page:        page,
			PageSize:    size,
		})
		if err != nil {
			fail(c, err)
			return
		}
		listJSON(c, rows, total, page, size)
	}
}

func DeleteInvite(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), u, c.Param("id"), audit.MetaFrom(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func ResendInvite(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		res, err := svc.Resend(c.Request.Context(), u, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invite": res.Invite, "emailSent": res.EmailSent, "emailError": res.EmailError})
	}
}

// GetPublicInvite validates a token for the acceptance page. No login.
func GetPublicInvite(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.Validate(c.Request.Context(), c.Param("token"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"invite": gin.H{
				"email":         v.Email,
				"name":          v.Name,
				"role":          v.Role,
				"sindicatoName": v.SindicatoName,
				"sindicatoCnpj": v.SindicatoCNPJ,
				"expiresAt":     v.ExpiresAt,
				"status":        v.Status,
			},
		})
	}
}

// AcceptInvite creates the account for a valid token. No login.
func AcceptInvite(svc *invite.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Name           string `json:"name" binding:"max=200"`
			Password       string `json:"password" binding:"required"`
			CPF            string `json:"cpf" binding:"omitempty,cpf"`
			Phone          string `json:"phone" binding:"max=20"`
			CRF            string `json:"crf" binding:"max=30"`
			SindicatoEmail string `json:"sindicatoEmail" binding:"omitempty,email"`
			SindicatoPhone string `json:"sindicatoPhone" binding:"max=20"`
			Address        string `json:"address" binding:"max=255"`
			City           string `json:"city" binding:"max=120"`
			State          string `json:"state" binding:"omitempty,uf"`
			ZipCode        string `json:"zipCode"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.Accept(c.Request.Context(), c.Param("token"), invite.AcceptInput{
			Name:           in.Name,
			Password:       in.Password,
			CPF:            in.CPF,
			Phone:          in.Phone,
			CRF:            in.CRF,
			SindicatoEmail: in.SindicatoEmail,
			SindicatoPhone: in.SindicatoPhone,
			Address:        in.Address,
			City:           in.City,
			State:          in.State,
			ZipCode:        in.ZipCode,
		}, audit.MetaFrom(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": res.User, "sindicato": res.Sindicato})
	}
}
