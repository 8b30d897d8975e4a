// Package jsonutil decodes JSON payloads out of free-form model output.
// Model responses are not guaranteed to be bare JSON: they are frequently
// wrapped in Markdown code fences, so stripping happens before any parse.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a leading ```/```json marker and a trailing ``` marker
// from text, returning the inner payload trimmed of surrounding whitespace.
// Text without fences is returned trimmed but otherwise unchanged, so the
// operation is idempotent.
func StripFences(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop an optional language tag on the opening fence line.
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			firstLine := strings.TrimSpace(s[:idx])
			if firstLine == "" || isLanguageTag(firstLine) {
				s = s[idx+1:]
			}
		} else {
			s = strings.TrimSpace(s)
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// DecodeStrict parses data into v, rejecting unknown fields and trailing
// content. It is the single place where "looks like JSON" becomes a typed
// value, so callers get a hard failure instead of a partially filled struct.
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	// A second token means trailing garbage after the object.
	if dec.More() {
		return fmt.Errorf("decode JSON: trailing content after object")
	}

	return nil
}

// DecodeModelOutput strips code fences from raw model text and strictly
// decodes the remainder into v.
func DecodeModelOutput(text string, v any) error {
	payload := StripFences(text)
	if payload == "" {
		return fmt.Errorf("decode model output: empty payload")
	}
	return DecodeStrict([]byte(payload), v)
}
