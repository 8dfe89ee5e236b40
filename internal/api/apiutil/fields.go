package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PathID parses a positive int64 path value such as {id}.
func PathID(r *http.Request, key, label string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(key))
	if raw == "" {
		return 0, fmt.Errorf("invalid %s ID", label)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID", label)
	}
	return id, nil
}

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// RequiredText trims value and checks it is non-empty and at most maxLen runes.
func RequiredText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", FieldError{Field: field, Reason: fmt.Sprintf("must be %d characters or fewer", maxLen)}
	}
	return value, nil
}

// OptionalText trims value and returns nil for blanks. Non-blank values must
// be at most maxLen runes.
func OptionalText(field string, value *string, maxLen int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return nil, FieldError{Field: field, Reason: fmt.Sprintf("must be %d characters or fewer", maxLen)}
	}
	return &trimmed, nil
}

func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
