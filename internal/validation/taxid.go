// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

// NormalizeTaxID убирает из CPF/CNPJ разделители '.', '-', '/' и пробелы.
// Возвращает пустую строку, если встречен любой другой нецифровой символ.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	b.Grow(len(taxID))

	for _, ch := range taxID {
		switch {
		case unicode.IsDigit(ch) && ch < unicode.MaxASCII:
			b.WriteRune(ch)
		case ch == '.' || ch == '-' || ch == '/' || ch == ' ':
		default:
			return ""
		}
	}

	return b.String()
}

// IsValidTaxID проверяет CPF (11 цифр) или CNPJ (14 цифр) по контрольным разрядам.
func IsValidTaxID(taxID string) bool {
	digits := NormalizeTaxID(taxID)
	switch len(digits) {
	case 11:
		return isValidCPF(digits)
	case 14:
		return isValidCNPJ(digits)
	}
	return false
}

func isValidCPF(digits string) bool {
	if allSame(digits) {
		return false
	}

	for n := 9; n <= 10; n++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(digits[i]-'0') * (n + 1 - i)
		}
		check := sum * 10 % 11 % 10
		if check != int(digits[n]-'0') {
			return false
		}
	}

	return true
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

func isValidCNPJ(digits string) bool {
	if allSame(digits) {
		return false
	}

	for n := 12; n <= 13; n++ {
		weights := cnpjWeights[13-n:]
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(digits[i]-'0') * weights[i]
		}
		check := sum % 11
		if check < 2 {
			check = 0
		} else {
			check = 11 - check
		}
		if check != int(digits[n]-'0') {
			return false
		}
	}

	return true
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
