package services

import (
	"path/filepath"
	"strings"

	"github.com/gyanguru/gyanguru-backend/apperrors"
)

type InputType string

const (
	InputText InputType = "text"
	InputTXT  InputType = "txt"
	InputDOCX InputType = "docx"
	InputPDF  InputType = "pdf"
	InputCode InputType = "py"
)

// InputSource is either an uploaded file or text typed by the user.
type InputSource struct {
	Type     InputType
	Filename string
	Data     []byte
	Text     string
}

// InputTypeFromFilename picks the extractor for an uploaded file.
func InputTypeFromFilename(name string) (InputType, bool) {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".") {
	case "txt", "csv":
		return InputTXT, true
	case "docx":
		return InputDOCX, true
	case "pdf":
		return InputPDF, true
	case "py":
		return InputCode, true
	}
	return "", false
}

// NormalizeInput turns the source into plain text. Document formats are
// pre-cleaned; typed text and code are returned as they are.
func NormalizeInput(input InputSource) (string, error) {
	var (
		text string
		err  error
	)
	switch input.Type {
	case InputText:
		return input.Text, nil
	case InputTXT, InputCode:
		text, err = ExtractTextFromTXT(input.Data)
		if err == nil && input.Type == InputCode {
			return text, nil
		}
	case InputPDF:
		text, err = ExtractTextFromPDF(input.Data)
	case InputDOCX:
		text, err = ExtractTextFromDOCX(input.Data)
	default:
		return "", apperrors.Validation("file", "unsupported file type")
	}
	if err != nil {
		return "", apperrors.Dependency("could not extract text from "+input.Filename, err)
	}
	return PreCleanText(text), nil
}
