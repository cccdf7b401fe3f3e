package extract

import (
	"path/filepath"
	"strings"

	"github.com/refdesk-ai/refdesk/internal/domain"
)

// FromFile extracts text from an uploaded file, choosing the extractor by
// file extension. Unknown extensions are treated as plain text.
func FromFile(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "uploaded file is empty")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF(data)
	case ".txt", ".md", ".markdown", "":
		return Text(data)
	default:
		return Text(data)
	}
}
