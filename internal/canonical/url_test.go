package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://ArXiv.ORG/abs/1", "https://arxiv.org/abs/1"},
		{"strips trailing slash", "https://example.com/path/", "https://example.com/path"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"adds root slash", "https://example.com", "https://example.com/"},
		{"drops fragment", "https://example.com/p#section", "https://example.com/p"},
		{"drops utm params", "https://example.com/p?utm_source=x&utm_medium=y&id=3", "https://example.com/p?id=3"},
		{"drops tracking params", "https://example.com/p?fbclid=abc&gclid=def&ref=tw", "https://example.com/p"},
		{"sorts query params", "https://example.com/p?b=2&a=1", "https://example.com/p?a=1&b=2"},
		{"empty input", "", ""},
		{"no host", "/relative/path", ""},
		{"unparseable", "http://%zz", ""},
		{"whitespace trimmed", "  https://example.com/p  ", "https://example.com/p"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"HTTPS://Example.COM/Path/?utm_source=x&b=2&a=1#frag",
		"http://a.example/",
		"https://b.example/x/y/z/",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"3D Gaussian Splatting: A Survey!", "3d gaussian splatting a survey"},
		{"  Spaced   Out\tTitle ", "spaced out title"},
		{"ALL CAPS", "all caps"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.in), "input %q", tt.in)
	}
}

func TestDeduperFirstSeenWins(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	assert.True(t, d.Admit("arxiv:1", "https://arxiv.org/abs/1"))
	// Same identity.
	assert.False(t, d.Admit("arxiv:1", "https://other.example/x"))
	// Different identity, same URL after normalization.
	assert.False(t, d.Admit("s2:9", "HTTPS://ARXIV.ORG/abs/1/"))
	// Records without URLs dedupe on identity only.
	assert.True(t, d.Admit("hn:5", ""))
	assert.True(t, d.Admit("hn:6", ""))
	assert.Equal(t, 3, d.Len())
}
