//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package jsonblock extracts JSON payloads from free-form model output.
//
// Model responses wrap JSON in markdown fences, prose, or nothing at all.
// Extraction is best-effort with a fixed fallback order: fenced ```json
// block, any fenced block, first balanced object. A miss is a terminal
// "no JSON" result, never a guess.
package jsonblock

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be located in the input.
var ErrNoJSON = errors.New("jsonblock: no JSON object found")

// Extract locates the first JSON object in text and returns its raw bytes.
func Extract(text string) ([]byte, error) {
	for _, candidate := range candidates(text) {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" {
			continue
		}
		if raw := firstBalancedObject(trimmed); raw != "" && json.Valid([]byte(raw)) {
			return []byte(raw), nil
		}
	}
	return nil, ErrNoJSON
}

// Unmarshal extracts the first JSON object in text and decodes it into v.
func Unmarshal(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// candidates yields extraction candidates in fallback order.
func candidates(text string) []string {
	var out []string
	if block, ok := fencedBlock(text, "```json"); ok {
		out = append(out, block)
	}
	if block, ok := fencedBlock(text, "```"); ok {
		out = append(out, block)
	}
	out = append(out, text)
	return out
}

// fencedBlock returns the body of the first fence opened by marker.
func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	body := text[start+len(marker):]
	// Skip the remainder of the fence line (e.g. a language tag).
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && marker == "```" {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine != "" && !strings.HasPrefix(firstLine, "{") {
			body = body[nl+1:]
		}
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return body, true
	}
	return body[:end], true
}

// firstBalancedObject scans for the first brace-balanced object,
// respecting string literals and escapes.
func firstBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
