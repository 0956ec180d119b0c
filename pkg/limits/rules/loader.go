package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/flowgate/pkg/limits"
)

// MaxFileSize bounds the size of a rules file.
const MaxFileSize = 1 << 20

// LoadError describes a rules file that could not be read or parsed.
type LoadError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rules file %s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("rules file %s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse decodes and validates a rule set from YAML. Unknown fields are
// rejected so typos do not silently disable a rule.
//
// Example:
//
//	rules:
//	  - resource: sayHello
//	    entry_type: inbound
//	    grade: qps
//	    threshold: 10
//	    stat_interval: 1s
//	system:
//	  max_goroutines: 5000
func Parse(data []byte) (limits.RuleSet, error) {
	var set limits.RuleSet

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil && !errors.Is(err, io.EOF) {
		return limits.RuleSet{}, fmt.Errorf("failed to parse rules: %w", err)
	}

	if err := set.Validate(); err != nil {
		return limits.RuleSet{}, err
	}
	return set, nil
}

// LoadFile reads and parses a rules file.
func LoadFile(path string) (limits.RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return limits.RuleSet{}, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		return limits.RuleSet{}, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return limits.RuleSet{}, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > MaxFileSize {
		return limits.RuleSet{}, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return limits.RuleSet{}, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return limits.RuleSet{}, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	set, err := Parse(data)
	if err != nil {
		return limits.RuleSet{}, &LoadError{FilePath: path, Message: "invalid rules", Cause: err}
	}
	return set, nil
}

// Marshal encodes a rule set in the format Parse accepts.
func Marshal(set limits.RuleSet) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	return buf.Bytes(), nil
}
