// Package manuscript reads DOCX source files and splits them into chapters.
package manuscript

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/chunk"
)

// Paragraph is one non-empty paragraph with its style name.
type Paragraph struct {
	Style string
	Text  string
}

// documentXML mirrors the parts of word/document.xml we care about. Tags
// match by local name, so the w: namespace prefix is irrelevant.
type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
	} `xml:"body"`
}

type paragraphXML struct {
	Properties struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

// ReadDocx extracts the non-empty paragraphs of a DOCX file in document
// order. Paragraph text is normalized the same way chunking normalizes it.
func ReadDocx(path string) ([]Paragraph, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading document.xml: %w", err)
		}
		return parseParagraphs(content)
	}
	return nil, fmt.Errorf("%s: no word/document.xml entry", path)
}

func parseParagraphs(content []byte) ([]Paragraph, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing document.xml: %w", err)
	}

	var out []Paragraph
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}

		text := strings.TrimSpace(chunk.Normalize(b.String()))
		if text == "" {
			continue
		}

		style := p.Properties.Style.Val
		if style == "" {
			style = "Normal"
		}
		out = append(out, Paragraph{Style: style, Text: text})
	}
	return out, nil
}
