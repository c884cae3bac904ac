package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCNPJ(t *testing.T) {
	assert.True(t, CNPJ("11.222.333/0001-81"))
	assert.True(t, CNPJ("11222333000181"))
	assert.False(t, CNPJ("11.222.333/0001-82"))
	assert.False(t, CNPJ("00000000000000"))
	assert.False(t, CNPJ("1122233300018"))
}

func TestCPF(t *testing.T) {
	assert.True(t, CPF("529.982.247-25"))
	assert.True(t, CPF("52998224725"))
	assert.False(t, CPF("529.982.247-26"))
	assert.False(t, CPF("111.111.111-11"))
}

func TestUF(t *testing.T) {
	assert.True(t, UF("sp"))
	assert.False(t, UF("XX"))
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type input struct {
		CNPJ  string `validate:"required,cnpj"`
		CPF   string `validate:"omitempty,cpf"`
		State string `validate:"uf"`
	}

	assert.NoError(t, v.Struct(input{CNPJ: "11.222.333/0001-81"}))
	assert.Error(t, v.Struct(input{CNPJ: "11.222.333/0001-00"}))
	assert.Error(t, v.Struct(input{CNPJ: "11.222.333/0001-81", CPF: "123"}))
	assert.Error(t, v.Struct(input{CNPJ: "11.222.333/0001-81", State: "ZZ"}))
}
