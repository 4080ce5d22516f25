package server

import (
	"errors"
	"strconv"
	"strings"
)

const maxPageSize = 100

var errInvalidPageSize = errors.New("invalid_page_size")

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parsePageSize returns 0 when absent so the service applies its default.
func parsePageSize(value string) (int, error) {
	size, err := parseOptionalInt(value)
	if err != nil {
		return 0, errInvalidPageSize
	}
	if size == nil {
		return 0, nil
	}
	if *size < 1 || *size > maxPageSize {
		return 0, errInvalidPageSize
	}
	return *size, nil
}
