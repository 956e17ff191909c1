package middleware

import (
	"fmt"
	"net/url"
	"strings"
)

// Input validation for analysis request parameters

// ValidateEvidenceType checks the declared evidence type
func ValidateEvidenceType(t string) error {
	switch strings.ToLower(t) {
	case "text", "file", "url":
		return nil
	}
	return fmt.Errorf("invalid evidence type: %s (allowed: text, file, url)", t)
}

// ValidateMode checks the analysis mode; empty defaults downstream
func ValidateMode(mode string) error {
	switch strings.ToLower(mode) {
	case "", "quick", "deep":
		return nil
	}
	return fmt.Errorf("invalid mode: %s (allowed: quick, deep)", mode)
}

// ValidateAngle checks the analysis angle; empty defaults downstream
func ValidateAngle(angle string) error {
	switch strings.ToLower(angle) {
	case "", "standard", "technical", "conceptual", "provenance", "hybrid":
		return nil
	}
	return fmt.Errorf("invalid angle: %s (allowed: standard, technical, conceptual, provenance, hybrid)", angle)
}

// ValidateURL validates and sanitizes URL evidence
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	// Check for localhost/internal IPs (SSRF protection)
	host := strings.ToLower(u.Hostname())
	blocked := []string{"localhost", "127.0.0.1", "0.0.0.0", "[::]", "::1"}
	for _, b := range blocked {
		if strings.Contains(host, b) {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
	}

	// Block private IP ranges (basic check)
	if strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.16.") ||
		strings.HasPrefix(host, "172.31.") {
		return fmt.Errorf("private IP ranges are not allowed")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
