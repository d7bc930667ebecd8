package syncengine

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preview thumbnails fit inside this bounding box. Small enough to keep
// cached conversations cheap to load, large enough to recognize the image.
const (
	previewMaxWidth  = 160
	previewMaxHeight = 160
	previewQuality   = 70
)

// DerivePreview produces a base64 JPEG thumbnail from a base64 image payload.
// The thumbnail preserves aspect ratio and fits within the preview bounding
// box.
func DerivePreview(data string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode image payload: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, previewMaxWidth, previewMaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
