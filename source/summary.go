//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package source

import (
	"strconv"
	"strings"
)

// DefaultSummaryLimit bounds the schema summary injected into model context.
const DefaultSummaryLimit = 8000

// Summarize renders a bounded textual summary of the schema, one table per
// line. Tables that would push the summary past limit are elided with a
// trailing count so the model knows the catalog is truncated.
func Summarize(s Schema, limit int) string {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	var b strings.Builder
	elided := 0
	for i, table := range s.Tables {
		line := formatTable(table)
		if b.Len()+len(line)+1 > limit {
			elided = len(s.Tables) - i
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if elided > 0 {
		b.WriteString("\n... and ")
		b.WriteString(strconv.Itoa(elided))
		b.WriteString(" more tables")
	}
	return b.String()
}

func formatTable(t Table) string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.Type)
		if c.Nullable {
			b.WriteString(" null")
		}
	}
	b.WriteByte(')')
	return b.String()
}
