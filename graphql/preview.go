package graphql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const previewChars = 200

var textTypes = []string{
	"text/", "application/json", "application/graphql-response+json", "application/xml",
}

// bodyPreview renders a response body for logs and errors. Bodies that are
// not known to be text are reduced to their size and a hash.
func bodyPreview(body []byte, contentType string) string {
	ct := strings.ToLower(contentType)
	if ct != "" {
		text := false
		for _, t := range textTypes {
			if strings.Contains(ct, t) {
				text = true
				break
			}
		}
		if !text {
			hash := sha256.Sum256(body)
			return fmt.Sprintf("<%s: %d bytes, sha256=%s>", ct, len(body), hex.EncodeToString(hash[:8]))
		}
	}
	if len(body) > previewChars {
		return string(body[:previewChars]) + fmt.Sprintf("[truncated, total: %d chars]", len(body))
	}
	return string(body)
}
