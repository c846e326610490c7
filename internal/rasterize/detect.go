package rasterize

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the rasterizer family a view belongs to.
type Kind string

const (
	KindHTML        Kind = "html"
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindUnsupported Kind = "unsupported"
)

// TypeInfo is the outcome of content sniffing.
type TypeInfo struct {
	MIMEType  string
	Extension string
	Kind      Kind
}

// Detect sniffs content by magic bytes. A caller supplied hint wins when the
// bytes are ambiguous, e.g. an HTML fragment without a doctype reads as text.
func Detect(content []byte, hint string) TypeInfo {
	m := mimetype.Detect(content)
	info := TypeInfo{MIMEType: m.String(), Extension: m.Extension()}

	switch {
	case m.Is("text/html"):
		info.Kind = KindHTML
	case m.Is("application/pdf"):
		info.Kind = KindPDF
	case m.Is("image/png"), m.Is("image/jpeg"):
		info.Kind = KindImage
	case strings.HasPrefix(m.String(), "text/"):
		// fragments and templates without a doctype are still markup
		info.Kind = KindHTML
	default:
		info.Kind = KindUnsupported
	}

	if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" && info.Kind != KindPDF && info.Kind != KindImage {
		if k := kindForMIME(hint); k != KindUnsupported {
			info.Kind = k
			info.MIMEType = hint
		}
	}
	return info
}

func kindForMIME(mt string) Kind {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "text/html", "application/xhtml+xml":
		return KindHTML
	case "application/pdf":
		return KindPDF
	case "image/png", "image/jpeg":
		return KindImage
	}
	return KindUnsupported
}
