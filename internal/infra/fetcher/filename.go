package fetcher

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

const (
	pdfSuffix      = ".pdf"
	maxFilenameLen = 200
)

var invalidFilenameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// DeriveFilename maps a document URL to its file name inside a session. It is
// a pure function of the URL, which is what makes repeated fetches skippable.
//
// The last path segment is used, with ".pdf" appended when missing. URLs
// without a usable path fall back to "<host>_<8 hex digits of md5(url)>.pdf".
func DeriveFilename(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	var host, urlPath string
	if parsed, err := url.Parse(rawURL); err == nil {
		host = parsed.Host
		urlPath = parsed.Path
	}

	name := path.Base(urlPath)
	if name == "." || name == "/" {
		name = ""
	}
	if name == "" || !strings.HasSuffix(strings.ToLower(name), pdfSuffix) {
		if segment := lastSegment(urlPath); segment != "" {
			name = segment + pdfSuffix
		} else {
			sum := md5.Sum([]byte(rawURL))
			name = host + "_" + hex.EncodeToString(sum[:])[:8] + pdfSuffix
		}
	}

	name = stripControl(invalidFilenameChars.Replace(name))
	return capFilename(name)
}

func lastSegment(urlPath string) string {
	parts := strings.Split(urlPath, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

func stripControl(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
}

// capFilename limits the name to maxFilenameLen runes while keeping the
// ".pdf" extension, so the document stays addressable by read_pdf.
func capFilename(name string) string {
	if utf8.RuneCountInString(name) <= maxFilenameLen {
		return name
	}
	ext := ""
	if strings.HasSuffix(strings.ToLower(name), pdfSuffix) {
		ext = name[len(name)-len(pdfSuffix):]
		name = name[:len(name)-len(pdfSuffix)]
	}
	keep := maxFilenameLen - utf8.RuneCountInString(ext)
	runes := []rune(name)
	if len(runes) > keep {
		runes = runes[:keep]
	}
	return string(runes) + ext
}
