//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package jsonblock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "json fence",
			input: "Here is the plan:\n```json\n{\"action\":\"none\"}\n```\nDone.",
			want:  `{"action":"none"}`,
		},
		{
			name:  "plain fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare object in prose",
			input: `The classification is {"mode":"read","action":"list_workflows"} as requested.`,
			want:  `{"mode":"read","action":"list_workflows"}`,
		},
		{
			name:  "nested braces and strings",
			input: `{"summary":"create {x}","payload":{"name":"a\"b"}} trailing`,
			want:  `{"summary":"create {x}","payload":{"name":"a\"b"}}`,
		},
		{
			name:    "no object",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var out struct {
		Mode   string `json:"mode"`
		Action string `json:"action"`
	}
	err := Unmarshal("```json\n{\"mode\":\"confirm\",\"action\":\"create_workflow\"}\n```", &out)
	require.NoError(t, err)
	require.Equal(t, "confirm", out.Mode)
	require.Equal(t, "create_workflow", out.Action)
}
