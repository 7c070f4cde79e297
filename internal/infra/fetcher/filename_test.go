package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveFilename(t *testing.T) {
	cases := map[string]string{
		"https://arxiv.org/pdf/1706.03762.pdf":          "1706.03762.pdf",
		"https://arxiv.org/pdf/1706.03762v5":            "1706.03762v5.pdf",
		"https://example.org/papers/My%20Paper.PDF":     "My Paper.PDF",
		"https://example.org/a/b/":                      "b.pdf",
		"https://example.org/file.pdf?download=1":       "file.pdf",
		"https://example.org/dl/report:final.pdf":       "report_final.pdf",
		"https://example.org/view?doc=7":                "view.pdf",
		"https://www.biorxiv.org/content/10.1101/x.pdf": "x.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, DeriveFilename(in), in)
	}
}

func TestDeriveFilenameFallsBackToHostDigest(t *testing.T) {
	name := DeriveFilename("https://example.org")
	assert.True(t, strings.HasPrefix(name, "example.org_"), name)
	assert.True(t, strings.HasSuffix(name, ".pdf"), name)
	assert.Len(t, name, len("example.org_")+8+len(".pdf"))

	assert.Equal(t, name, DeriveFilename("https://example.org"))
	assert.NotEqual(t, name, DeriveFilename("https://example.org?x=1"))
}

func TestDeriveFilenameCapsLengthKeepingExtension(t *testing.T) {
	long := "https://example.org/" + strings.Repeat("a", 300) + ".pdf"
	name := DeriveFilename(long)
	assert.Len(t, []rune(name), maxFilenameLen)
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}
