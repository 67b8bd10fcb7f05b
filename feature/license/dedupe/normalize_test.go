package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDBA(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "ACME Widgets", "acme widgets"},
		{"strips llc suffix", "Acme Widgets, LLC", "acme widgets"},
		{"strips inc suffix", "Acme Widgets Inc.", "acme widgets"},
		{"strips stacked suffixes", "Acme Widgets Co Ltd", "acme widgets"},
		{"strips punctuation", "O'Brien & Sons, Inc.", "obrien sons"},
		{"keeps at least one token", "LLC", "llc"},
		{"collapses whitespace", "  Acme   Widgets  ", "acme widgets"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDBA(tc.in))
		})
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "acme.com", EmailDomain("Billing@ACME.com"))
	assert.Equal(t, "", EmailDomain("not-an-email"))
	assert.Equal(t, "", EmailDomain(""))
}

func TestNormalizeZip(t *testing.T) {
	assert.Equal(t, "94107", NormalizeZip("94107-1234"))
	assert.Equal(t, "94107", NormalizeZip(" 94107 "))
	assert.Equal(t, "", NormalizeZip("123"))
	assert.Equal(t, "", NormalizeZip(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "4155551234", NormalizePhone("(415) 555-1234"))
	assert.Equal(t, "4155551234", NormalizePhone("+1 415 555 1234"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("acme widgets", "acme widgets"))
	assert.Equal(t, 0.0, Similarity("", "acme"))

	// One edit over thirteen runes.
	sim := Similarity("acmee widgets", "acme widgets")
	assert.InDelta(t, 1.0-1.0/13.0, sim, 1e-9)
	assert.GreaterOrEqual(t, sim, 0.85)

	assert.Less(t, Similarity("acme widgets", "zenith plumbing"), 0.5)
}
