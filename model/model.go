//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the language model capability consumed by the agent
// core.
//
// The core treats generation as a black box: messages in, text out. Wire
// transport, streaming and tool calling live behind the implementations.
package model

import "context"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of model context.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Options tunes one generation call.
type Options struct {
	// Model overrides the provider's default model name.
	Model string
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
	// Temperature overrides sampling temperature when non-nil.
	Temperature *float64
	// AgentID tags the call for accounting. Optional.
	AgentID string
}

// Provider is the generation capability.
type Provider interface {
	// Generate produces one completion for the given messages.
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)

	// Name returns the provider's default model name, recorded in trust
	// records.
	Name() string
}
