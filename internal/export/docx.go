// Package export renders a sermon as a Word (.docx) document.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/sermon"
)

const (
	untitled          = "Untitled Sermon"
	noIntro           = "No introduction provided."
	noContent         = "No sermon content provided."
	noVerses          = "No verses or notes provided."
	contactFontHalfPt = 20 // 10pt
)

// DefaultFilename returns "<Title_with_underscores>_<YYYY-MM-DD>.docx".
func DefaultFilename(s *sermon.Sermon, now time.Time) string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = "Untitled_Sermon"
	}
	title = strings.ReplaceAll(title, " ", "_")
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, title)
	return fmt.Sprintf("%s_%s.docx", title, now.Format("2006-01-02"))
}

// SaveDocx writes the document to path, forcing a .docx extension and creating
// missing parent directories. It returns the path actually written.
func SaveDocx(path string, s *sermon.Sermon) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".docx"
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteDocx(f, s); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

type part struct {
	name string
	body []byte
}

// WriteDocx writes a minimal WordprocessingML package for s to w.
func WriteDocx(w io.Writer, s *sermon.Sermon) error {
	header := s.Header.Lines()
	footer := s.Footer.Lines()

	parts := []part{
		{"[Content_Types].xml", contentTypes(len(header) > 0, len(footer) > 0)},
		{"_rels/.rels", []byte(packageRels)},
		{"word/_rels/document.xml.rels", documentRels(len(header) > 0, len(footer) > 0)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", documentXML(s, len(header) > 0, len(footer) > 0)},
	}
	if len(header) > 0 {
		parts = append(parts, part{"word/header1.xml", headerFooterXML("hdr", header)})
	}
	if len(footer) > 0 {
		parts = append(parts, part{"word/footer1.xml", headerFooterXML("ftr", footer)})
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish docx: %w", err)
	}
	return nil
}

func documentXML(s *sermon.Sermon, hasHeader, hasFooter bool) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `"><w:body>`)

	title := orDefault(s.Title, untitled)
	paragraph(&b, "Heading1", "center", 0, title)

	paragraph(&b, "Heading2", "", 0, "Introduction")
	paragraph(&b, "", "", 0, orDefault(s.Intro, noIntro))

	paragraph(&b, "Heading2", "", 0, "Sermon Content")
	paragraph(&b, "", "", 0, orDefault(s.Content, noContent))

	paragraph(&b, "Heading2", "", 0, "Verses and Notes")
	if len(s.VersesNotes) == 0 {
		paragraph(&b, "", "", 0, noVerses)
	}
	for _, n := range s.VersesNotes {
		paragraph(&b, "", "", 0, orDefault(n.Ref, "Unknown")+": "+n.Text)
		if n.Note != "" {
			paragraph(&b, "", "", 0, "Note: "+n.Note)
		}
	}
	paragraph(&b, "", "", 0, "")

	b.WriteString(`<w:sectPr>`)
	if hasHeader {
		b.WriteString(`<w:headerReference w:type="default" r:id="rIdHeader1"/>`)
	}
	if hasFooter {
		b.WriteString(`<w:footerReference w:type="default" r:id="rIdFooter1"/>`)
	}
	b.WriteString(`<w:pgSz w:w="12240" w:h="15840"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

func headerFooterXML(root string, lines []string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:` + root + ` xmlns:w="` + nsW + `" xmlns:r="` + nsR + `">`)
	paragraph(&b, "", "center", contactFontHalfPt, strings.Join(lines, "\n"))
	b.WriteString(`</w:` + root + `>`)
	return b.Bytes()
}

// paragraph writes one w:p. Newlines in text become w:br line breaks.
// size is in half-points; 0 keeps the style's size.
func paragraph(b *bytes.Buffer, style, align string, size int, text string) {
	b.WriteString(`<w:p>`)
	if style != "" || align != "" {
		b.WriteString(`<w:pPr>`)
		if style != "" {
			fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, style)
		}
		if align != "" {
			fmt.Fprintf(b, `<w:jc w:val="%s"/>`, align)
		}
		b.WriteString(`</w:pPr>`)
	}
	if text != "" {
		b.WriteString(`<w:r>`)
		if size > 0 {
			fmt.Fprintf(b, `<w:rPr><w:sz w:val="%d"/></w:rPr>`, size)
		}
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteString(`<w:br/>`)
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(b, []byte(line))
			b.WriteString(`</w:t>`)
		}
		b.WriteString(`</w:r>`)
	}
	b.WriteString(`</w:p>`)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
