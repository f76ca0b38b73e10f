// Package media normalizes client-supplied images into bounded WebP data URLs.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	WebPQuality = 75
	webpPrefix  = "data:image/webp;base64,"
)

var (
	// ErrInvalidImage covers malformed data URLs, unsupported types and undecodable payloads.
	ErrInvalidImage = errors.New("invalid image")
	// ErrTooLarge means the decoded payload exceeds the upload limit.
	ErrTooLarge = errors.New("image too large")
	// ErrTooManyPixels means the declared dimensions exceed the pixel budget.
	ErrTooManyPixels = errors.New("image has too many pixels")
)

// Normalize decodes a data:image/<png|jpeg|gif|webp>;base64 URL, shrinks it to fit
// maxDim on both sides and re-encodes it as a WebP data URL.
// Images whose header declares more than maxPixels pixels are refused before decoding.
// An empty input yields an empty result.
func Normalize(dataURL string, maxDim, maxBytes, maxPixels int) (string, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return "", nil
	}

	payload, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return "", ErrTooLarge
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidImage
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return "", ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", ErrInvalidImage
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return "", ErrTooManyPixels
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", ErrInvalidImage
	}

	if maxDim > 0 {
		img = resizeToFit(img, maxDim, maxDim)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return "", err
	}
	return webpPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func parseDataURL(dataURL string) (string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || payload == "" {
		return "", ErrInvalidImage
	}
	mediaType, found := strings.CutPrefix(strings.ToLower(header), "data:")
	if !found {
		return "", ErrInvalidImage
	}
	mediaType, found = strings.CutSuffix(mediaType, ";base64")
	if !found {
		return "", ErrInvalidImage
	}
	switch mediaType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return payload, nil
	default:
		return "", ErrInvalidImage
	}
}

func isSupportedDecodedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
