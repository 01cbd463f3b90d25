// Package http holds the JSON request and response helpers shared by the
// API handlers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"moneyclip/internal/auth"
	"moneyclip/internal/models"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// JSON writes v with the given status
func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

// ErrorResponse sends {"error": message}. Server errors are logged.
func ErrorResponse(w http.ResponseWriter, log *logrus.Entry, message string, statusCode int) {
	if statusCode >= http.StatusInternalServerError && log != nil {
		log.WithField("status", statusCode).Error(message)
	}
	JSON(w, statusCode, map[string]string{"error": message})
}

// DecodeJSON reads a JSON body of at most 1 MiB into v
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// UserID returns the authenticated user of r
func UserID(r *http.Request) (string, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return "", errors.New("no authenticated user")
	}
	return id, nil
}

// ParseDate parses an optional YYYY-MM-DD query value; empty gives the zero date
func ParseDate(value string) (models.Date, error) {
	if strings.TrimSpace(value) == "" {
		return models.Date{}, nil
	}
	return models.ParseDate(strings.TrimSpace(value))
}

// ParseInt parses an optional integer query value, returning def when empty
func ParseInt(value string, def int) (int, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

// ParseBool parses an optional boolean query value
func ParseBool(value string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(value))
	return b
}
