// Package extract turns uploaded files into plain text ready for chunking.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/refdesk-ai/refdesk/internal/domain"
)

// Text normalizes a plain text or markdown upload. Line endings are
// normalized to \n and a UTF-8 check rejects binary garbage early.
func Text(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "file is not valid UTF-8 text")
	}

	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}
