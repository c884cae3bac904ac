// Package validate checks Brazilian identifiers and registers them as
// validator tags for request binding.
package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var ufs = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true, "DF": true,
	"ES": true, "GO": true, "MA": true, "MT": true, "MS": true, "MG": true, "PA": true,
	"PB": true, "PR": true, "PE": true, "PI": true, "RJ": true, "RN": true, "RS": true,
	"RO": true, "RR": true, "SC": true, "SP": true, "SE": true, "TO": true,
}

// Digits strips everything but 0-9, so "12.345.678/0001-95" becomes "12345678000195".
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}

func checkDigit(d string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

// CNPJ validates a 14 digit company tax id, formatted or not.
func CNPJ(s string) bool {
	d := Digits(s)
	if len(d) != 14 || allSame(d) {
		return false
	}
	w1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	return checkDigit(d, w1) == int(d[12]-'0') && checkDigit(d, w2) == int(d[13]-'0')
}

// CPF validates an 11 digit personal tax id, formatted or not.
func CPF(s string) bool {
	d := Digits(s)
	if len(d) != 11 || allSame(d) {
		return false
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	return checkDigit(d, w1) == int(d[9]-'0') && checkDigit(d, w2) == int(d[10]-'0')
}

func UF(s string) bool {
	return ufs[strings.ToUpper(strings.TrimSpace(s))]
}

// Register adds the cnpj, cpf and uf tags. Empty strings pass so the tags
// combine with omitempty/required.
func Register(v *validator.Validate) error {
	tags := map[string]func(string) bool{"cnpj": CNPJ, "cpf": CPF, "uf": UF}
	for tag, fn := range tags {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || fn(s)
		}); err != nil {
			return err
		}
	}
	return nil
}
