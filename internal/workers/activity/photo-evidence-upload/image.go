package photoevidenceupload

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// decodedImage is a verified upload: the canonical base64 text that gets
// stored and the raw bytes that get archived.
type decodedImage struct {
	Encoded     string
	Bytes       []byte
	ContentType string
}

// decodeImage accepts plain base64 or a data URI. The declared media type of
// a data URI is ignored; the content type is sniffed from the bytes.
func decodeImage(raw string, maxBytes int) (*decodedImage, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, fmt.Errorf("%w: imageData: data URI must be base64 encoded", ErrValidation)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: imageData is required", ErrValidation)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrTooLarge, maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: imageData: invalid base64", ErrValidation)
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrTooLarge, maxBytes)
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: imageData: %s is not an image", ErrValidation, ct)
	}
	return &decodedImage{Encoded: payload, Bytes: data, ContentType: ct}, nil
}
