//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-compatible model.Provider.
//
// Any endpoint speaking the chat completions protocol works through the
// base-URL option, so one implementation covers OpenAI and compatible
// gateways.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/model"
)

const (
	apiKeyEnv = "OPENAI_API_KEY"

	defaultTimeout = 60 * time.Second
)

// ErrEmptyCompletion is returned when the API produced no choices.
var ErrEmptyCompletion = errors.New("openai: empty completion")

// Model implements model.Provider over the OpenAI chat completions API.
type Model struct {
	name    string
	client  openai.Client
	timeout time.Duration
}

var _ model.Provider = (*Model)(nil)

// options holds constructor configuration.
type options struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	clientOpts []openaiopt.RequestOption
}

// Option configures the model constructor.
type Option func(*options)

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment
// variable.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithClientOptions passes extra request options to the underlying client.
func WithClientOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// New creates a Model for the named chat model.
func New(name string, opts ...Option) *Model {
	o := &options{
		apiKey:  os.Getenv(apiKeyEnv),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := []openaiopt.RequestOption{openaiopt.WithAPIKey(o.apiKey)}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.clientOpts...)

	return &Model{
		name:    name,
		client:  openai.NewClient(clientOpts...),
		timeout: o.timeout,
	}
}

// Name implements model.Provider.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Provider.
func (m *Model) Generate(ctx context.Context, messages []model.Message, opts model.Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	name := m.name
	if opts.Model != "" {
		name = opts.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(name),
		Messages: convertMessages(messages),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := completion.Choices[0].Message.Content
	log.Debugf("completion: model=%s agent=%s chars=%d", name, opts.AgentID, len(text))
	return text, nil
}

// convertMessages maps core messages onto the OpenAI union type.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
