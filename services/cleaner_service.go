package services

import (
	"regexp"
	"strings"
)

var (
	reTOC          = regexp.MustCompile(`(?im)^.*\btable of contents\b.*$`)
	rePageNumber   = regexp.MustCompile(`(?im)^[ \t]*(page[ \t]*\d+([ \t]*of[ \t]*\d+)?|\d+[ \t]*(/|of)[ \t]*\d+|-?[ \t]*\d+[ \t]*-?)[ \t]*$`)
	reSpecialLines = regexp.MustCompile(`(?m)^[^\p{L}\p{N}\n]+$`)
	reTrailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
	reMultiNewLine = regexp.MustCompile(`\n{3,}`)
)

// PreCleanText strips extraction noise from document text before it is
// sent for analysis: table of contents headings, page number lines and
// lines made only of symbols. Paragraph breaks are kept.
func PreCleanText(text string) string {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = reTOC.ReplaceAllString(cleaned, "")
	cleaned = rePageNumber.ReplaceAllString(cleaned, "")
	cleaned = reSpecialLines.ReplaceAllString(cleaned, "")
	cleaned = reTrailingWS.ReplaceAllString(cleaned, "")
	cleaned = reMultiNewLine.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
