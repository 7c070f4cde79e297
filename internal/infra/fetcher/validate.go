package fetcher

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/textutil"
)

var pdfMagic = []byte("%PDF")

// validatePDF accepts a response when the body starts with the PDF magic
// number, the server declares a PDF content type, or the URL ends in .pdf and
// the payload is not recognisably HTML.
func validatePDF(rawURL, contentType string, body []byte) error {
	if bytes.HasPrefix(body, pdfMagic) {
		return nil
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "pdf") {
		return nil
	}
	html := strings.Contains(ct, "html") || looksLikeHTML(body)
	if hasPDFSuffix(rawURL) && !html {
		return nil
	}

	mismatch := &serrors.ContentMismatchError{ContentType: contentType}
	if html {
		mismatch.Detail = htmlTitle(body)
	}
	return mismatch
}

func hasPDFSuffix(rawURL string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(rawURL)), pdfSuffix)
}

func looksLikeHTML(body []byte) bool {
	sniff := body
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	return strings.HasPrefix(http.DetectContentType(sniff), "text/html")
}

// htmlTitle pulls the page title out of an error page so failures read as
// "not a PDF (Access Denied)" instead of a bare rejection.
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		title = strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
	}
	return textutil.Ellipsize(title, 80)
}
