package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a rejected category, format, quality or URL.
// It is surfaced synchronously, before any job record is created.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func NewValidationError(field, value string, allowed []string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Allowed: allowed}
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("invalid %s: %q (use: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// MetadataError reports a failed metadata resolution for a URL.
type MetadataError struct {
	URL string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to resolve metadata for %s: %v", e.URL, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// FetchError reports a failed download attempt. Reason is human-readable
// and safe to persist or publish as-is.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConversionError reports a failed format conversion.
type ConversionError struct {
	Input  string
	Format string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion of %s to %s failed: %v", e.Input, e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// StoreError reports a persistence failure. It indicates storage
// unavailability and is never retried locally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
