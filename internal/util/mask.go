// Package util reúne helpers chicos sin dependencias.
package util

import "strings"

// MaskTarget enmascara un destino de OTP para que pueda ir a logs sin
// exponer el dato completo. Reconoce emails por el '@'; cualquier otra
// cosa se trata como número de teléfono.
func MaskTarget(s string) string {
	if strings.ContainsRune(s, '@') {
		return MaskEmail(s)
	}
	return MaskPhone(s)
}

// MaskEmail deja visible la primera letra de la parte local, la primera
// del dominio y el TLD completo: "ana@example.com" -> "a***@e***.com".
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return maskOpaque(s)
	}
	local, domain := s[:at], s[at+1:]

	var b strings.Builder
	b.WriteByte(local[0])
	if len(local) > 1 {
		b.WriteString("***")
	}
	b.WriteByte('@')
	b.WriteByte(domain[0])
	b.WriteString("***")
	if dot := strings.LastIndexByte(domain, '.'); dot > 0 {
		b.WriteString(domain[dot:])
	}
	return b.String()
}

// MaskPhone conserva el prefijo internacional y los últimos dos dígitos:
// "+5491155512345" -> "+549***45".
func MaskPhone(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return maskOpaque(s)
	}
	prefix := s[:2]
	if s[0] == '+' && len(s) > 4 {
		prefix = s[:4]
	}
	return prefix + "***" + s[len(s)-2:]
}

// maskOpaque cubre entradas sin estructura reconocible.
func maskOpaque(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 3 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
