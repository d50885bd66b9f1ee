// Package textsearch normaliza texto para búsquedas insensibles a mayúsculas y tildes
// ("Champú" coincide con "champu").
package textsearch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold quita diacríticos, aplica case folding y colapsa espacios.
func Fold(s string) string {
	// transform.Chain guarda estado: se construye por llamada.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// Contains indica si needle aparece en haystack tras normalizar ambos.
// Un needle vacío coincide con todo.
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Fold(haystack), n)
}
