package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText pulls the plain text out of the PDF at path.
func ExtractPDFText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copying PDF text: %w", err)
	}

	text := normalizeExtractedText(buf.String())
	if text == "" {
		return "", fmt.Errorf("PDF contains no extractable text")
	}
	return text, nil
}

// normalizeExtractedText collapses the excessive whitespace PDF text
// extraction tends to produce while keeping paragraph breaks.
func normalizeExtractedText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
