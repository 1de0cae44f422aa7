package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrEmpty       = errors.New("document has no text")
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindPPTX Kind = "pptx"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

type Document struct {
	Kind Kind
	Text string
}

// Extract sniffs the real type from the bytes first and falls back to the name
// and mime type. Line structure is kept so headings and bullets survive.
func Extract(originalName string, mimeType string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i != -1 {
		mt = strings.TrimSpace(mt[:i])
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file %q", ErrEmpty, originalName)
	}

	var (
		kind Kind
		text string
		err  error
	)
	switch {
	case isPDF(data):
		kind = KindPDF
		text, err = extractPDF(data)
	case isZip(data):
		kind, err = detectOpenXMLKind(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		if kind == KindDOCX {
			text, err = extractOpenXML(data, func(name string) bool { return name == "word/document.xml" })
		} else {
			text, err = extractOpenXML(data, func(name string) bool {
				return strings.HasPrefix(name, "ppt/slides/") && strings.HasSuffix(name, ".xml")
			})
		}
	case looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm":
		kind = KindHTML
		text = extractHTML(string(data))
	case isProbablyText(data) || mt == "text/plain" || mt == "text/markdown" || ext == ".txt" || ext == ".md" || ext == ".markdown":
		kind = KindText
		text = normalizeLines(string(data))
	case mt == "application/pdf" || ext == ".pdf":
		return nil, fmt.Errorf("%w: %q claims pdf but has no %%PDF header (head=%x)", ErrUnsupported, originalName, head(data, 16))
	default:
		return nil, fmt.Errorf("%w: name=%s ext=%s mime=%s head=%x", ErrUnsupported, originalName, ext, mimeType, head(data, 16))
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmpty, originalName)
	}
	return &Document{Kind: kind, Text: text}, nil
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func looksLikeHTML(b []byte) bool {
	s := strings.TrimSpace(strings.ToLower(string(head(b, 2048))))
	if strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html") {
		return true
	}
	return strings.Contains(s, "<html") && strings.Contains(s, "</html>")
}

func isProbablyText(b []byte) bool {
	sample := head(b, 4096)
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					out.WriteByte(' ')
				}
				out.WriteString(word.S)
			}
			out.WriteByte('\n')
		}
	}
	if strings.TrimSpace(out.String()) != "" {
		return normalizeLines(out.String()), nil
	}

	// some producers only yield text through the flat reader
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return normalizeLines(string(b)), nil
}

func detectOpenXMLKind(zipBytes []byte) (Kind, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	hasWord, hasPpt := false, false
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/") {
			hasWord = true
		}
		if strings.HasPrefix(f.Name, "ppt/") {
			hasPpt = true
		}
	}
	switch {
	case hasWord && !hasPpt:
		return KindDOCX, nil
	case hasPpt && !hasWord:
		return KindPPTX, nil
	case hasWord && hasPpt:
		return "", fmt.Errorf("zip contains both word/ and ppt/ parts")
	default:
		return "", fmt.Errorf("zip does not look like docx or pptx")
	}
}

func extractOpenXML(zipBytes []byte, want func(name string) bool) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, f := range zr.File {
		if !want(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		b, err := io.ReadAll(io.LimitReader(rc, 64<<20))
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		out.WriteString(textFromOpenXML(b))
		out.WriteByte('\n')
	}
	return normalizeLines(out.String()), nil
}

// textFromOpenXML collects <w:t>/<a:t> runs and ends a line at each paragraph.
// Word heading styles are rendered as markdown headings.
func textFromOpenXML(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out, para strings.Builder
	headingLevel := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "p":
				para.Reset()
				headingLevel = 0
			case "pStyle":
				headingLevel = headingLevelFromStyle(se.Attr)
			case "tab":
				para.WriteByte(' ')
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &se); err == nil {
					para.WriteString(v)
				}
			}
		case xml.EndElement:
			if se.Name.Local != "p" {
				continue
			}
			line := strings.TrimSpace(para.String())
			if line == "" {
				continue
			}
			if headingLevel > 0 {
				out.WriteString(strings.Repeat("#", headingLevel))
				out.WriteByte(' ')
			}
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.String()
}

var headingStyleRE = regexp.MustCompile(`(?i)^(?:heading|title)\s*([1-6]?)$`)

func headingLevelFromStyle(attrs []xml.Attr) int {
	for _, a := range attrs {
		if a.Name.Local != "val" {
			continue
		}
		m := headingStyleRE.FindStringSubmatch(strings.TrimSpace(a.Value))
		if m == nil {
			return 0
		}
		if m[1] == "" {
			return 1
		}
		return int(m[1][0] - '0')
	}
	return 0
}

var (
	scriptStyleRE = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlHeadingRE = regexp.MustCompile(`(?i)<h([1-6])[^>]*>`)
	htmlItemRE    = regexp.MustCompile(`(?i)<li[^>]*>`)
	htmlBreakRE   = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|tr|ul|ol|table|section|article)>`)
	htmlTagRE     = regexp.MustCompile(`(?s)<[^>]*>`)
)

func extractHTML(s string) string {
	s = scriptStyleRE.ReplaceAllString(s, " ")
	s = htmlHeadingRE.ReplaceAllStringFunc(s, func(tag string) string {
		m := htmlHeadingRE.FindStringSubmatch(tag)
		return "\n" + strings.Repeat("#", int(m[1][0]-'0')) + " "
	})
	s = htmlItemRE.ReplaceAllString(s, "\n- ")
	s = htmlBreakRE.ReplaceAllString(s, "\n")
	s = htmlTagRE.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return normalizeLines(s)
}

// normalizeLines collapses whitespace inside each line, keeps leading
// indentation for nested lists and drops repeated blank lines.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	var out strings.Builder
	blank := true
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if !blank {
				out.WriteByte('\n')
				blank = true
			}
			continue
		}
		indent := 0
		for _, r := range line {
			if r == ' ' {
				indent++
			} else if r == '\t' {
				indent += 4
			} else {
				break
			}
		}
		if indent > 0 {
			out.WriteString(strings.Repeat(" ", indent))
		}
		out.WriteString(strings.Join(fields, " "))
		out.WriteByte('\n')
		blank = false
	}
	return strings.TrimSpace(out.String())
}
