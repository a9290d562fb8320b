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
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// The keyword gate is an advisory safety boundary: token matching can both
// over-reject and under-reject obfuscated statements. The authoritative
// control is a read-only database role on the adapter.

// ErrMutationNotAllowed classifies statements rejected by the safety gate.
var ErrMutationNotAllowed = errors.New("mutating operations are not allowed")

// DefaultRowLimit is the row cap appended to uncapped SELECT statements.
const DefaultRowLimit = 100

// Keyword must start at a token boundary and be followed by whitespace, so
// identifiers like update_time or created_at pass.
var mutationRe = regexp.MustCompile(`(?i)(^|[^a-z0-9_])(drop|truncate|alter|create|delete|update)\s`)

var limitRe = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// CheckStatement applies the safety gate to an extracted statement before
// execution. The offending statement is preserved in the error for user
// visibility.
func CheckStatement(sql string) error {
	if mutationRe.MatchString(sql) {
		return fmt.Errorf("%w: %s", ErrMutationNotAllowed, sql)
	}
	return nil
}

// ApplyRowLimit appends the default row cap when the statement has no LIMIT
// clause. Statements with an explicit LIMIT pass through unmodified.
func ApplyRowLimit(sql string, limit int) string {
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	if limitRe.MatchString(sql) {
		return sql
	}
	return sql + " LIMIT " + strconv.Itoa(limit)
}
