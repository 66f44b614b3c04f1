package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"safevoice/internal/domain"

	"gorm.io/gorm"
)

func utcNow() time.Time { return time.Now().UTC() }

// notFoundOr maps gorm's missing-row error to a NotFound for resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(resource)
	}
	return err
}

// plainText trims in and rejects invalid UTF-8. User text is stored as
// received; HTML output escapes it at render time.
func plainText(field, in string) (string, error) {
	if !utf8.ValidString(in) {
		return "", domain.Validation(field+"_invalid", field+" must be valid UTF-8")
	}
	return strings.TrimSpace(in), nil
}

// requiredText enforces 1..max runes after trimming.
func requiredText(field, in string, max int) (string, error) {
	out, err := optionalText(field, in, max)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", domain.Validation(field+"_required", field+" is required")
	}
	return out, nil
}

// optionalText enforces at most max runes after trimming.
func optionalText(field, in string, max int) (string, error) {
	out, err := plainText(field, in)
	if err != nil {
		return "", err
	}
	if max > 0 && utf8.RuneCountInString(out) > max {
		return "", domain.Validation(field+"_too_long", field+" is too long")
	}
	return out, nil
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
