package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiraleos/sermon-assistant/internal/sermon"
)

func readPart(t *testing.T, data []byte, name string) (string, bool) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(body), true
	}
	return "", false
}

func wellFormed(t *testing.T, name, body string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		if _, err := dec.Token(); err == io.EOF {
			return
		} else if err != nil {
			t.Fatalf("%s is not well-formed XML: %v", name, err)
		}
	}
}

func TestWriteDocxContent(t *testing.T) {
	s := sermon.Default()
	s.Title = "Bread & Wine"
	s.Intro = "Welcome.\nLet us pray."
	s.Header = sermon.Contact{Name: "Pastor Jo", Church: "Grace <Chapel>"}
	s.VersesNotes = []sermon.Note{
		{ID: "1", Ref: "John 6:35", Text: "I am the bread of life", Note: "central verse"},
		{ID: "2", Ref: "Note", Text: "remember the children's message"},
	}

	var buf bytes.Buffer
	if err := WriteDocx(&buf, s); err != nil {
		t.Fatalf("WriteDocx: %v", err)
	}
	data := buf.Bytes()

	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels", "word/styles.xml", "word/document.xml", "word/header1.xml"} {
		body, ok := readPart(t, data, name)
		if !ok {
			t.Fatalf("missing part %s", name)
		}
		wellFormed(t, name, body)
	}
	if _, ok := readPart(t, data, "word/footer1.xml"); ok {
		t.Error("footer part written for empty footer")
	}

	doc, _ := readPart(t, data, "word/document.xml")
	for _, want := range []string{
		"Bread &amp; Wine",
		"Introduction",
		"Welcome.</w:t><w:br/>",
		"Sermon Content",
		"No sermon content provided.",
		"Verses and Notes",
		"John 6:35: I am the bread of life",
		"Note: central verse",
		`r:id="rIdHeader1"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if strings.Contains(doc, "rIdFooter1") {
		t.Error("document references a footer that was not written")
	}

	hdr, _ := readPart(t, data, "word/header1.xml")
	if !strings.Contains(hdr, "Name: Pastor Jo") || !strings.Contains(hdr, "Church: Grace &lt;Chapel&gt;") {
		t.Errorf("header = %s", hdr)
	}
}

func TestWriteDocxPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocx(&buf, sermon.Default()); err != nil {
		t.Fatal(err)
	}
	doc, _ := readPart(t, buf.Bytes(), "word/document.xml")
	for _, want := range []string{untitled, noIntro, noContent, noVerses} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing placeholder %q", want)
		}
	}
}

func TestSaveDocxForcesExtension(t *testing.T) {
	dir := t.TempDir()
	s := sermon.Default()
	s.Footer = sermon.Contact{Website: "example.org"}

	path, err := SaveDocx(filepath.Join(dir, "nested", "sermon.txt"), s)
	if err != nil {
		t.Fatalf("SaveDocx: %v", err)
	}
	if filepath.Base(path) != "sermon.docx" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if ftr, ok := readPart(t, data, "word/footer1.xml"); !ok || !strings.Contains(ftr, "Website: example.org") {
		t.Errorf("footer = %q", ftr)
	}
}

func TestDefaultFilename(t *testing.T) {
	day := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)
	s := sermon.Default()
	if got := DefaultFilename(s, day); got != "Untitled_Sermon_2025-04-20.docx" {
		t.Errorf("empty title = %q", got)
	}
	s.Title = "He Is Risen: Easter"
	if got := DefaultFilename(s, day); got != "He_Is_Risen__Easter_2025-04-20.docx" {
		t.Errorf("filename = %q", got)
	}
}
