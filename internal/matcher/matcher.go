// Package matcher decide si un texto contiene referencias de catálogo.
//
// La comparación es literal (sin tokenizar, sin mayúsculas/minúsculas, sin fuzzy): las
// referencias del catálogo son sensibles a mayúsculas y mayoritariamente numéricas. El coste
// es O(referencias × longitud del texto), suficiente para catálogos de cientos de entradas.
package matcher

import (
	"sort"
	"strings"
)

type memberKind uint8

const (
	// literal: la referencia tal como viene del catálogo; basta con que sea substring.
	literal memberKind = iota
	// derived: variante sin ceros a la izquierda de una referencia literal. Sólo cuenta
	// si no está pegada a otro dígito, así "0042" encuentra "42" pero no "420".
	derived
)

// ReferenceSet es un conjunto normalizado de referencias. Es de sólo lectura una vez creado.
type ReferenceSet struct {
	members map[string]memberKind
}

// NewReferenceSet normaliza las referencias (trim + espacios colapsados), descarta las
// vacías y añade la variante sin ceros a la izquierda como miembro aparte.
func NewReferenceSet(raw []string) *ReferenceSet {
	set := &ReferenceSet{members: make(map[string]memberKind, len(raw)*2)}
	for _, r := range raw {
		ref := NormalizeWhitespace(r)
		if ref == "" {
			continue
		}
		set.members[ref] = literal

		stripped := strings.TrimLeft(ref, "0")
		if stripped == "" || stripped == ref {
			continue
		}
		if _, exists := set.members[stripped]; !exists {
			set.members[stripped] = derived
		}
	}
	return set
}

// Len devuelve el número de miembros (literales + variantes).
func (s *ReferenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Has indica si ref es miembro del conjunto (tras normalizar).
func (s *ReferenceSet) Has(ref string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[NormalizeWhitespace(ref)]
	return ok
}

// Members devuelve los miembros ordenados.
func (s *ReferenceSet) Members() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// NormalizeWhitespace colapsa cualquier secuencia de espacios en uno solo y recorta los
// extremos. No cambia mayúsculas.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Contains indica si text contiene al menos una referencia del conjunto.
func Contains(text string, refs *ReferenceSet) bool {
	if text == "" || refs.Len() == 0 {
		return false
	}
	normalized := NormalizeWhitespace(text)
	for ref, kind := range refs.members {
		if matches(normalized, ref, kind) {
			return true
		}
	}
	return false
}

// FindMatches devuelve todas las referencias presentes en text, ordenadas y sin repetir.
// Nunca devuelve nil.
func FindMatches(text string, refs *ReferenceSet) []string {
	found := []string{}
	if text == "" || refs.Len() == 0 {
		return found
	}
	normalized := NormalizeWhitespace(text)
	for ref, kind := range refs.members {
		if matches(normalized, ref, kind) {
			found = append(found, ref)
		}
	}
	sort.Strings(found)
	return found
}

func matches(text, ref string, kind memberKind) bool {
	if kind == literal {
		return strings.Contains(text, ref)
	}
	return containsStandalone(text, ref)
}

// containsStandalone busca ref en text sin dígitos inmediatamente antes ni después.
func containsStandalone(text, ref string) bool {
	offset := 0
	for {
		idx := strings.Index(text[offset:], ref)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(ref)

		before := start == 0 || !isDigit(text[start-1])
		after := end == len(text) || !isDigit(text[end])
		if before && after {
			return true
		}
		offset = start + 1
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
