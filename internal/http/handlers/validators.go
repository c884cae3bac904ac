package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/validate"
)

// cnpj, cpf and uf binding tags
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validate.Register(v); err != nil {
			logger.Error("Failed to register validators", "error", err)
		}
	}
}
