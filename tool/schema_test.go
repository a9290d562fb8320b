//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSpec() Spec {
	return Spec{
		Name:        "create_ticket",
		Description: "Create a support ticket.",
		InputSchema: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"title":    {Type: "string", Description: "Ticket title."},
				"priority": {Type: "string", Enum: []any{"low", "high"}},
			},
			Required: []string{"title"},
		},
	}
}

func TestValidateArgs(t *testing.T) {
	spec := testSpec()

	require.NoError(t, spec.ValidateArgs(map[string]any{"title": "broken dashboard"}))
	require.NoError(t, spec.ValidateArgs(map[string]any{"title": "x", "priority": "high"}))

	err := spec.ValidateArgs(map[string]any{"priority": "high"})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "create_ticket", verr.Tool)
	require.NotEmpty(t, verr.Causes)

	err = spec.ValidateArgs(map[string]any{"title": "x", "priority": "urgent"})
	require.Error(t, err)

	err = spec.ValidateArgs(map[string]any{"title": 7})
	require.Error(t, err)
}

func TestValidateArgsNoSchema(t *testing.T) {
	spec := Spec{Name: "ping"}
	require.NoError(t, spec.ValidateArgs(nil))
	require.NoError(t, spec.ValidateArgs(map[string]any{"anything": true}))
}

func TestFindSpec(t *testing.T) {
	d := Descriptor{Name: "helpdesk", Tools: []Spec{testSpec()}}

	s, ok := d.FindSpec("create_ticket")
	require.True(t, ok)
	require.Equal(t, "create_ticket", s.Name)

	_, ok = d.FindSpec("close_ticket")
	require.False(t, ok)
}
