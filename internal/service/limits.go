// Package service holds the business rules between the HTTP handlers and the repositories.
package service

import (
	"strings"

	"murmur/internal/config"
	"murmur/internal/media"
	"murmur/internal/models"
)

// Limits bounds user-supplied content.
type Limits struct {
	BioMaxLen      int
	PostTextMaxLen int
	IconMaxDim     int
	ImageMaxDim    int
	ImageMaxBytes  int
	ImageMaxPixels int
}

// DefaultLimits mirrors the configuration defaults.
var DefaultLimits = Limits{
	BioMaxLen:      160,
	PostTextMaxLen: 200,
	IconMaxDim:     256,
	ImageMaxDim:    1080,
	ImageMaxBytes:  5 << 20,
	ImageMaxPixels: 16_000_000,
}

// LimitsFromConfig reads content limits from cfg, falling back to DefaultLimits per field.
func LimitsFromConfig(cfg *config.Config) Limits {
	l := DefaultLimits
	if cfg == nil {
		return l
	}
	if cfg.BioMaxLen > 0 {
		l.BioMaxLen = cfg.BioMaxLen
	}
	if cfg.PostTextMaxLen > 0 {
		l.PostTextMaxLen = cfg.PostTextMaxLen
	}
	if cfg.IconMaxDimension > 0 {
		l.IconMaxDim = cfg.IconMaxDimension
	}
	if cfg.ImageMaxDimension > 0 {
		l.ImageMaxDim = cfg.ImageMaxDimension
	}
	l.ImageMaxBytes = cfg.ImageMaxUploadBytes()
	if cfg.ImageMaxPixels > 0 {
		l.ImageMaxPixels = cfg.ImageMaxPixels
	}
	return l
}

// Messages shared by more than one service.
const (
	MsgUnauthorizedUser = "Unauthorized user"
	MsgNotFound         = "Not found"
	MsgInvalidImage     = "invalid image"
	MsgForbidden        = "forbidden"
)

func notFound() *models.AppError {
	return &models.AppError{Code: models.CodeNotFound, Message: MsgNotFound}
}

func (l Limits) normalizeImage(dataURL string, maxDim int) ([]byte, error) {
	out, err := media.Normalize(dataURL, maxDim, l.ImageMaxBytes, l.ImageMaxPixels)
	if err != nil {
		return nil, models.NewValidationError(MsgInvalidImage)
	}
	if out == "" {
		return nil, nil
	}
	return []byte(out), nil
}

func validationError(err error) error {
	return models.NewValidationError(err.Error())
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
