//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package chat

// TrustRecord is the provenance attached to one chat answer: the SQL that
// ran, how many rows it produced, and what the model claimed about it.
//
// Every turn that reaches the query pipeline produces a trust record,
// including failed executions (zero rows, reasoning explains the failure).
// It is the only channel through which an answer can be materialized as an
// artifact.
type TrustRecord struct {
	// SQL is the extracted statement, empty when extraction found none.
	SQL string `json:"sql"`
	// RowCount is the total rows the execution produced.
	RowCount int `json:"row_count"`
	// Model is the language model that generated the statement.
	Model string `json:"model"`
	// Confidence is the model-reported scalar in [0,1], nil when absent.
	Confidence *float64 `json:"confidence"`
	// Reasoning is the model's explanation, or the failure description.
	Reasoning string `json:"reasoning"`
	// SampleRows holds up to SampleRowCap rows in adapter order.
	SampleRows [][]any `json:"sample_rows"`
	// Columns names the sample row columns.
	Columns []string `json:"columns,omitempty"`
	// ExecutionTimeMs is the adapter-measured execution time.
	ExecutionTimeMs int64 `json:"execution_time_ms,omitempty"`
}

// SampleRowCap bounds the rows carried in a trust record.
const SampleRowCap = 100
