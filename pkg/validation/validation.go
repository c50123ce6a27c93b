package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Cloud region names: lowercase words separated by hyphens ending in a digit, e.g. asia-southeast1
	regionNameRegex = regexp.MustCompile(`^[a-z]+(-[a-z]+)*[0-9]+$`)

	// Project IDs: 6-30 chars, lowercase letters, digits and hyphens, starting with a letter
	projectIDRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)
)

// MaxNodeCount caps the node ceiling accepted from operators.
const MaxNodeCount = 1000

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateRegionName checks a single cloud region name.
func ValidateRegionName(name string) error {
	name = SanitizeString(name)

	if name == "" {
		return errors.New("region name cannot be empty")
	}
	if len(name) > 63 {
		return errors.New("region name must not exceed 63 characters")
	}
	if !regionNameRegex.MatchString(name) {
		return fmt.Errorf("region name %q must be lowercase words separated by hyphens followed by a zone number", name)
	}

	return nil
}

// ValidateRegionList checks a non-empty list of region names without duplicates.
func ValidateRegionList(field string, regions []string) error {
	if len(regions) == 0 {
		return fmt.Errorf("%s must list at least one region", field)
	}

	var errs []error
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if err := ValidateRegionName(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			continue
		}
		if seen[r] {
			errs = append(errs, fmt.Errorf("%s: region %q listed twice", field, r))
		}
		seen[r] = true
	}

	return errors.Join(errs...)
}

// ValidateProjectID checks a cloud project identifier.
func ValidateProjectID(id string) error {
	id = SanitizeString(id)

	if id == "" {
		return errors.New("project id cannot be empty")
	}
	if !projectIDRegex.MatchString(id) {
		return fmt.Errorf("project id %q must be 6-30 lowercase letters, digits or hyphens and start with a letter", id)
	}

	return nil
}

// ValidateNodeCount checks a node ceiling requested by an operator.
func ValidateNodeCount(n int) error {
	if n < 0 {
		return errors.New("node count cannot be negative")
	}
	if n > MaxNodeCount {
		return fmt.Errorf("node count cannot exceed %d", MaxNodeCount)
	}
	return nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}

	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}

	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}

	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSpecial {
		return errors.New("password must contain at least one special character")
	}

	return nil
}
