package utils

import (
	"net/http"
)

// UnknownMimeType is reported when no content is available to sniff.
const UnknownMimeType = "application/octet-stream"

// DetectMimeType returns the MIME type of data using http.DetectContentType
// over at most SniffLength bytes.
func DetectMimeType(data []byte) string {
	if len(data) == 0 {
		return UnknownMimeType
	}
	if len(data) > SniffLength {
		data = data[:SniffLength]
	}
	return http.DetectContentType(data)
}
