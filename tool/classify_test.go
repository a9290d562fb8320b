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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassFatal},
		{"deadline", context.DeadlineExceeded, ErrorClassRetryable},
		{"wrapped deadline", fmt.Errorf("call tool: %w", context.DeadlineExceeded), ErrorClassRetryable},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrorClassRetryable},
		{"io timeout", errors.New("read tcp: i/o timeout"), ErrorClassRetryable},
		{"eof suffix", errors.New("unexpected response: EOF"), ErrorClassRetryable},
		{"server 503", errors.New("HTTP 503 Service Unavailable"), ErrorClassRetryable},
		{"rate limited", errors.New("status code: 429"), ErrorClassRetryable},
		{"port lookalike", errors.New("cannot bind port 5001"), ErrorClassFatal},
		{"bad credentials", errors.New("401 unauthorized"), ErrorClassFatal},
		{"schema mismatch", errors.New("invalid arguments: missing field name"), ErrorClassFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
