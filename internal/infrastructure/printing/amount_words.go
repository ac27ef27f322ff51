package printing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unitWords = []string{
		"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
		"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISEIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE",
		"VEINTE", "VEINTIUNO", "VEINTIDOS", "VEINTITRES", "VEINTICUATRO", "VEINTICINCO", "VEINTISEIS", "VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE",
	}
	tensWords = []string{
		"", "", "", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA",
	}
	hundredsWords = []string{
		"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS",
		"SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS",
	}
)

// amountInWords spells an amount in lempiras for the "Son:" line.
// Example: 258.75 -> "DOSCIENTOS CINCUENTA Y OCHO LEMPIRAS CON 75/100"
func amountInWords(v decimal.Decimal) string {
	v = v.Abs().Round(2)
	whole := v.IntPart()
	cents := v.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()

	words := integerWords(whole)
	if whole == 0 {
		words = "CERO"
	}
	currency := "LEMPIRAS"
	if whole == 1 {
		words = "UN"
		currency = "LEMPIRA"
	}
	return fmt.Sprintf("%s %s CON %02d/100", words, currency, cents)
}

func integerWords(n int64) string {
	switch {
	case n == 0:
		return ""
	case n < 1000:
		return hundredsText(int(n))
	case n < 1_000_000:
		thousands, rest := n/1000, n%1000
		prefix := "MIL"
		if thousands > 1 {
			prefix = apocopate(hundredsText(int(thousands))) + " MIL"
		}
		return strings.TrimSpace(prefix + " " + integerWords(rest))
	default:
		millions, rest := n/1_000_000, n%1_000_000
		prefix := "UN MILLON"
		if millions > 1 {
			prefix = apocopate(integerWords(millions)) + " MILLONES"
		}
		return strings.TrimSpace(prefix + " " + integerWords(rest))
	}
}

func hundredsText(n int) string {
	if n == 100 {
		return "CIEN"
	}
	h, rest := n/100, n%100

	var parts []string
	if h > 0 {
		parts = append(parts, hundredsWords[h])
	}
	switch {
	case rest == 0:
	case rest < 30:
		parts = append(parts, unitWords[rest])
	default:
		t, u := rest/10, rest%10
		if u == 0 {
			parts = append(parts, tensWords[t])
		} else {
			parts = append(parts, tensWords[t]+" Y "+unitWords[u])
		}
	}
	return strings.Join(parts, " ")
}

// apocopate shortens a trailing "UNO" before a noun: "VEINTIUNO MIL" is "VEINTIUN MIL"
func apocopate(s string) string {
	if strings.HasSuffix(s, "UNO") {
		return strings.TrimSuffix(s, "UNO") + "UN"
	}
	return s
}
