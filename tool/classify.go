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
	"strings"
)

// The core performs no automatic retries; callers decide what to do with a
// failed call. ClassifyError tells them whether retrying could help.

// ErrorClass partitions upstream failures for callers.
type ErrorClass string

const (
	// ErrorClassRetryable marks transient network/server failures.
	ErrorClassRetryable ErrorClass = "retryable"
	// ErrorClassFatal marks failures a retry cannot fix.
	ErrorClassFatal ErrorClass = "fatal"
)

// ClassifyError reports whether an upstream error is worth retrying.
// Unknown errors classify as fatal to avoid retry loops.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassRetryable
	}
	errStr := strings.ToLower(err.Error())

	// Network connection errors - use precise matching to avoid false positives.
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection timeout") ||
		strings.Contains(errStr, "connection lost") ||
		strings.Contains(errStr, "connection aborted") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "read timeout") ||
		strings.Contains(errStr, "write timeout") ||
		strings.Contains(errStr, "dial timeout") ||
		errStr == "eof" ||
		strings.HasSuffix(errStr, ": eof") {
		return ErrorClassRetryable
	}

	if hasRetryableHTTPStatus(errStr) {
		return ErrorClassRetryable
	}
	return ErrorClassFatal
}

// hasRetryableHTTPStatus checks for retryable HTTP status codes embedded in
// the error text. Patterns require a non-digit boundary so that e.g.
// "port 5001" does not match "500".
func hasRetryableHTTPStatus(errStr string) bool {
	retryableCodes := []string{"408", "429", "500", "502", "503", "504"}
	for _, code := range retryableCodes {
		idx := 0
		for {
			pos := strings.Index(errStr[idx:], code)
			if pos < 0 {
				break
			}
			pos += idx
			beforeOK := pos == 0 || !isDigit(errStr[pos-1])
			after := pos + len(code)
			afterOK := after == len(errStr) || !isDigit(errStr[after])
			if beforeOK && afterOK {
				return true
			}
			idx = pos + len(code)
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
