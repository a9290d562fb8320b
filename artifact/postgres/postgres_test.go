//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionRefUnpinnedIsNull(t *testing.T) {
	// An item without a pinned version must bind NULL, never an empty
	// string, into the uuid column.
	require.Nil(t, versionRef(""))

	id := "7f9c24e8-3b12-4a0a-9f31-1caf6a1c24d6"
	require.Equal(t, id, versionRef(id))
}
