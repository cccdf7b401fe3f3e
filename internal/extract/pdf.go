package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/refdesk-ai/refdesk/internal/domain"
)

// PDF extracts the text content of a PDF file. Page content streams are
// decoded with pdfcpu and the text-showing operators are parsed out of
// them. Layout is not reconstructed; the result is reading-order text good
// enough for chunking and retrieval.
func PDF(data []byte) (string, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to read PDF", err)
	}

	var out strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to extract PDF page content", err)
		}
		if r == nil {
			continue
		}

		content, err := io.ReadAll(r)
		if err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to read PDF page content", err)
		}

		pageText := contentStreamText(content)
		if pageText != "" {
			if out.Len() > 0 {
				out.WriteString("\n\n")
			}
			out.WriteString(pageText)
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "PDF contains no extractable text")
	}
	return text, nil
}

// contentStreamText pulls the strings shown by Tj, TJ, ' and " operators
// out of a decoded content stream. Text positioning operators Td, TD and T*
// become line breaks.
func contentStreamText(content []byte) string {
	var out strings.Builder
	var pending strings.Builder

	flush := func() {
		if pending.Len() == 0 {
			return
		}
		out.WriteString(pending.String())
		pending.Reset()
	}

	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '(':
			s, next := parseLiteralString(content, i)
			pending.WriteString(s)
			i = next
		case c == '<':
			// << starts a dictionary, a single < a hex string
			if i+1 < len(content) && content[i+1] == '<' {
				i += 2
				continue
			}
			i = skipHexString(content, i)
		case c == 'T' && i+1 < len(content):
			op := content[i+1]
			switch op {
			case 'j', 'J':
				flush()
				pending.Reset()
				i += 2
			case 'd', 'D', '*':
				flush()
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteByte('\n')
				}
				pending.Reset()
				i += 2
			default:
				pending.Reset()
				i++
			}
		case c == '\'' || c == '"':
			flush()
			out.WriteByte('\n')
			i++
		case c == '%':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		default:
			i++
		}
	}
	flush()

	return strings.TrimSpace(collapseBlankLines(out.String()))
}

// parseLiteralString reads a PDF literal string starting at the opening
// parenthesis and returns the decoded text plus the index past the closing
// parenthesis. Parentheses nest; backslash escapes follow the PDF spec.
func parseLiteralString(content []byte, start int) (string, int) {
	var out strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				return out.String(), i + 1
			}
			next := content[i+1]
			switch next {
			case 'n':
				out.WriteByte('\n')
			case 'r', 't', 'b', 'f':
				out.WriteByte(' ')
			case '(', ')', '\\':
				out.WriteByte(next)
			default:
				if next >= '0' && next <= '7' {
					// Octal escape, up to three digits
					val := 0
					j := i + 1
					for j < len(content) && j <= i+3 && content[j] >= '0' && content[j] <= '7' {
						val = val*8 + int(content[j]-'0')
						j++
					}
					if val >= 32 && val < 127 {
						out.WriteByte(byte(val))
					}
					i = j
					continue
				}
				out.WriteByte(next)
			}
			i += 2
		case '(':
			depth++
			if depth > 1 {
				out.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return out.String(), i + 1
			}
			out.WriteByte(c)
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), i
}

// skipHexString returns the index past a hex string. Hex strings usually
// carry glyph IDs of embedded fonts, which are not recoverable as text
// without the font's mapping, so they are skipped.
func skipHexString(content []byte, start int) int {
	i := start + 1
	for i < len(content) && content[i] != '>' {
		i++
	}
	return i + 1
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
