package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

type PageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
}

type PDFContent struct {
	TotalPages int           `json:"total_pages"`
	Pages      []PageContent `json:"pages"`
}

// ExtractPDFContent reads every page of a PDF. Pages whose text cannot be
// decoded are reported with empty text rather than failing the document.
func ExtractPDFContent(data []byte) (*PDFContent, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	content := &PDFContent{TotalPages: total, Pages: make([]PageContent, 0, total)}
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		var text string
		if !page.V.IsNull() {
			if plain, err := page.GetPlainText(nil); err == nil {
				text = plain
			}
		}
		content.Pages = append(content.Pages, PageContent{
			PageNumber: i,
			Text:       text,
			WordCount:  len(strings.Fields(text)),
		})
	}
	return content, nil
}

func ExtractTextFromPDF(data []byte) (string, error) {
	content, err := ExtractPDFContent(data)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, page := range content.Pages {
		sb.WriteString(page.Text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ExtractTextFromDOCX reads word/document.xml from the archive and keeps one
// line per paragraph.
func ExtractTextFromDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("docx has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf strings.Builder
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read docx xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var text string
				if err := decoder.DecodeElement(&text, &el); err == nil {
					buf.WriteString(text)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				buf.WriteString("\n")
			}
		}
	}

	return strings.TrimSpace(buf.String()), nil
}

func ExtractTextFromTXT(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return string(data), nil
}
