package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReferenceSet(t *testing.T) {
	set := NewReferenceSet([]string{"  EMR627 ", "0042", "", "   ", "000", "A  B"})

	assert.True(t, set.Has("EMR627"))
	assert.True(t, set.Has("0042"))
	assert.True(t, set.Has("42"))
	assert.True(t, set.Has("000"))
	assert.True(t, set.Has("A B"))
	assert.Equal(t, []string{"000", "0042", "42", "A B", "EMR627"}, set.Members())
}

func TestNewReferenceSet_LiteralWinsOverDerived(t *testing.T) {
	// "42" aparece literal en el catálogo: debe comportarse como substring puro
	set := NewReferenceSet([]string{"0042", "42"})
	assert.True(t, Contains("pedido 420", set))

	set = NewReferenceSet([]string{"42", "0042"})
	assert.True(t, Contains("pedido 420", set))
}

func TestContains_ZeroPadding(t *testing.T) {
	set := NewReferenceSet([]string{"0042"})

	testCases := []struct {
		name   string
		text   string
		expect bool
	}{
		{name: "stripped_form", text: "Bici ref 42 azul", expect: true},
		{name: "padded_form", text: "Bici ref 0042 azul", expect: true},
		{name: "longer_number", text: "Bici ref 420 azul", expect: false},
		{name: "prefixed_number", text: "Bici ref 142", expect: false},
		{name: "letters_around", text: "REF42X", expect: true},
		{name: "at_start", text: "42", expect: true},
		{name: "second_occurrence", text: "420 and 42", expect: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Contains(tc.text, set))
		})
	}
}

func TestContains_LiteralOverMatch(t *testing.T) {
	// una referencia literal "42" también encuentra "420": sobre-coincidencia aceptada
	set := NewReferenceSet([]string{"42"})
	assert.True(t, Contains("420", set))
}

func TestContains_CaseSensitive(t *testing.T) {
	set := NewReferenceSet([]string{"EMR627"})
	assert.True(t, Contains("Conway EMR627 2024", set))
	assert.False(t, Contains("conway emr627 2024", set))
}

func TestContains_WhitespaceNormalized(t *testing.T) {
	set := NewReferenceSet([]string{"Cairon C 327"})
	assert.True(t, Contains("Conway  Cairon\tC\n327 2024", set))
}

func TestContains_EmptyInputs(t *testing.T) {
	set := NewReferenceSet([]string{"EMR627"})
	assert.False(t, Contains("", set))
	assert.False(t, Contains("EMR627", NewReferenceSet(nil)))
	assert.False(t, Contains("EMR627", nil))
	assert.Equal(t, []string{}, FindMatches("", set))
	assert.Equal(t, []string{}, FindMatches("EMR627", nil))
}

func TestFindMatches(t *testing.T) {
	set := NewReferenceSet([]string{"EMR627", "0042", "XYZ"})

	matches := FindMatches("EMR627 + accesorio 42 + EMR627", set)
	assert.Equal(t, []string{"42", "EMR627"}, matches)

	matches = FindMatches("0042", set)
	assert.Equal(t, []string{"0042"}, matches)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \t b\n\nc "))
	assert.Equal(t, "AbC", NormalizeWhitespace("AbC"))
	assert.Equal(t, "", NormalizeWhitespace(" \t "))
}
