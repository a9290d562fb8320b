//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// SQL extraction is a lossy parse over free-form model text with a fixed
// fallback order: the strict ```sql fence the prompt asks for, then the
// first generic fenced block, then nothing. A miss means no execution is
// attempted; the pipeline never guesses.

var (
	sqlFenceRe     = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)```")
	genericFenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*\\n(.*?)```")
)

// ExtractSQL returns the SQL statement found in the model's response and
// whether one was found.
func ExtractSQL(text string) (string, bool) {
	if m := sqlFenceRe.FindStringSubmatch(text); m != nil {
		return normalizeStatement(m[1]), true
	}
	if m := genericFenceRe.FindStringSubmatch(text); m != nil {
		stmt := normalizeStatement(m[1])
		if looksLikeSQL(stmt) {
			return stmt, true
		}
	}
	return "", false
}

// ExtractReasoning returns the response text with fenced blocks removed,
// serving as the model's explanation of the statement.
func ExtractReasoning(text string) string {
	cleaned := sqlFenceRe.ReplaceAllString(text, "")
	cleaned = genericFenceRe.ReplaceAllString(cleaned, "")
	cleaned = confidenceRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

var confidenceRe = regexp.MustCompile(`(?im)^\s*confidence:\s*([0-9]*\.?[0-9]+)\s*$`)

// ExtractConfidence parses the model-reported confidence trailer. Values
// outside [0,1] and unparsable trailers yield nil, never a guess.
func ExtractConfidence(text string) *float64 {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if v < 0 || v > 1 {
		return nil
	}
	return &v
}

// normalizeStatement trims whitespace and a trailing semicolon.
func normalizeStatement(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimSuffix(stmt, ";")
	return strings.TrimSpace(stmt)
}

var sqlLeadRe = regexp.MustCompile(`(?i)^\s*(select|with)\b`)

// looksLikeSQL guards the generic-fence fallback against grabbing prose or
// code in another language.
func looksLikeSQL(stmt string) bool {
	return sqlLeadRe.MatchString(stmt)
}
