//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package chat implements the natural-language-to-SQL pipeline.
//
// One turn is strictly sequential: schema load, generation, extraction,
// safety check, execution. The pipeline performs no retries; a failed turn
// still returns the extracted SQL and a zero-row trust record so the user
// can inspect and re-send.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-dataagent-go/credential"
	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/model"
	"trpc.group/trpc-go/trpc-dataagent-go/source"
	"trpc.group/trpc-go/trpc-dataagent-go/telemetry"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// Validation errors, rejected before any side effect.
var (
	// ErrMessageRequired is returned when the chat message is empty.
	ErrMessageRequired = errors.New("chat: message is required")
	// ErrOrganizationRequired is returned when the organization id is empty.
	ErrOrganizationRequired = errors.New("chat: organization id is required")
)

// AdapterResolver supplies the data source adapter for an execution context.
type AdapterResolver interface {
	// AdapterFor returns the adapter for the context's source.
	AdapterFor(ctx context.Context, ec tool.ExecutionContext) (source.Adapter, error)
}

// credentialAdapterResolver resolves adapters through the credential cache.
type credentialAdapterResolver struct {
	resolver *credential.Resolver
}

// NewCredentialAdapterResolver adapts a credential.Resolver whose client
// factory produces source.Adapter values.
func NewCredentialAdapterResolver(resolver *credential.Resolver) AdapterResolver {
	return &credentialAdapterResolver{resolver: resolver}
}

// AdapterFor implements AdapterResolver.
func (r *credentialAdapterResolver) AdapterFor(ctx context.Context, ec tool.ExecutionContext) (source.Adapter, error) {
	client, err := r.resolver.ResolveClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	adapter, ok := client.(source.Adapter)
	if !ok {
		return nil, fmt.Errorf("chat: resolved client for source %q is not a source adapter", ec.SourceID)
	}
	return adapter, nil
}

// Request is one chat turn.
type Request struct {
	// ProjectID scopes the turn to a project. Carried through, not
	// interpreted by the pipeline.
	ProjectID string `json:"project_id"`
	// OrganizationID is the owning tenant. Required.
	OrganizationID string `json:"organization_id"`
	// SourceID selects the data source. Optional; without it the turn is
	// answered from model knowledge only.
	SourceID string `json:"source_id,omitempty"`
	// Message is the user's message. Required.
	Message string `json:"message"`
}

// ArtifactAction is a follow-up the UI may offer for a successful turn.
type ArtifactAction struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Response is the outcome of one chat turn.
type Response struct {
	// Answer is the model's prose answer.
	Answer string `json:"answer"`
	// Trust is the provenance record for the turn.
	Trust TrustRecord `json:"trust"`
	// ArtifactActions lists save options when the turn produced rows.
	ArtifactActions []ArtifactAction `json:"artifact_actions,omitempty"`
	// Error is set when the turn failed after validation (no credentials,
	// safety rejection, execution failure). The rest of the response is
	// still populated so the turn is not a total loss.
	Error string `json:"error,omitempty"`
	// ErrorClass tells callers whether re-sending the turn could help.
	// Empty when Error is empty.
	ErrorClass tool.ErrorClass `json:"error_class,omitempty"`
}

// Pipeline turns chat messages into governed SQL executions.
type Pipeline struct {
	model        model.Provider
	adapters     AdapterResolver
	schemas      *source.Cache
	rowLimit     int
	summaryLimit int
	maxTokens    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSchemaCache sets the schema snapshot cache. Without one, schemas are
// fetched from the adapter on every turn.
func WithSchemaCache(cache *source.Cache) Option {
	return func(p *Pipeline) {
		p.schemas = cache
	}
}

// WithRowLimit overrides the default row cap injected into uncapped SELECTs.
func WithRowLimit(limit int) Option {
	return func(p *Pipeline) {
		if limit > 0 {
			p.rowLimit = limit
		}
	}
}

// WithSummaryLimit bounds the schema summary injected into model context.
func WithSummaryLimit(limit int) Option {
	return func(p *Pipeline) {
		if limit > 0 {
			p.summaryLimit = limit
		}
	}
}

// WithMaxTokens caps generation length.
func WithMaxTokens(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// New creates a Pipeline over the given model and adapter resolver.
func New(provider model.Provider, adapters AdapterResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:        provider,
		adapters:     adapters,
		rowLimit:     DefaultRowLimit,
		summaryLimit: source.DefaultSummaryLimit,
		maxTokens:    2048,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

const systemPromptHeader = `You are a data analyst answering questions against a SQL database.
Rules:
- Produce exactly one SQL statement answering the user's question.
- Emit the statement in a single fenced block marked sql, and nothing else in that block.
- Briefly explain what the statement does before the block.
- After the block, report your confidence as a line "Confidence: <0..1>".
- Only read data. Never modify it.`

// Run executes one chat turn.
func (p *Pipeline) Run(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, ErrMessageRequired
	}
	if req.OrganizationID == "" {
		return Response{}, ErrOrganizationRequired
	}

	ctx, span := telemetry.Tracer.Start(ctx, "chat.run", trace.WithAttributes(
		telemetry.KeyOrganizationID.String(req.OrganizationID),
		telemetry.KeySourceID.String(req.SourceID),
		telemetry.KeyModel.String(p.model.Name()),
	))
	defer span.End()

	ec := tool.ExecutionContext{OrganizationID: req.OrganizationID, SourceID: req.SourceID}

	// Resolve the adapter and schema context up front; a turn without a
	// source still gets a model answer, just no execution.
	var adapter source.Adapter
	var schemaSummary string
	if req.SourceID != "" {
		var err error
		adapter, err = p.adapters.AdapterFor(ctx, ec)
		if err != nil {
			if errors.Is(err, credential.ErrNoCredentials) {
				return Response{
					Error:      fmt.Sprintf("no credentials for this source: %s", req.SourceID),
					ErrorClass: tool.ErrorClassFatal,
					Trust:      TrustRecord{Model: p.model.Name(), Reasoning: "credential resolution failed"},
				}, nil
			}
			return Response{
				Error:      err.Error(),
				ErrorClass: tool.ClassifyError(err),
				Trust:      TrustRecord{Model: p.model.Name(), Reasoning: err.Error()},
			}, nil
		}
		schema, err := p.loadSchema(ctx, req.SourceID, adapter)
		if err != nil {
			log.Warnf("schema load failed, continuing without context: source=%s err=%v", req.SourceID, err)
		} else {
			schemaSummary = source.Summarize(schema, p.summaryLimit)
		}
	}

	text, err := p.model.Generate(ctx, p.buildMessages(req.Message, schemaSummary), model.Options{
		MaxTokens: p.maxTokens,
		AgentID:   req.ProjectID,
	})
	if err != nil {
		return Response{
			Error:      fmt.Sprintf("generation failed: %v", err),
			ErrorClass: tool.ClassifyError(err),
			Trust:      TrustRecord{Model: p.model.Name(), Reasoning: fmt.Sprintf("generation failed: %v", err)},
		}, nil
	}

	trust := TrustRecord{
		Model:      p.model.Name(),
		Confidence: ExtractConfidence(text),
		Reasoning:  ExtractReasoning(text),
	}

	sql, ok := ExtractSQL(text)
	if !ok {
		// No SQL extracted: terminal state, answer from model text alone.
		return Response{Answer: text, Trust: trust}, nil
	}
	trust.SQL = sql

	if err := CheckStatement(sql); err != nil {
		trust.Reasoning = err.Error()
		return Response{Answer: text, Trust: trust, Error: err.Error(), ErrorClass: tool.ErrorClassFatal}, nil
	}

	if adapter == nil {
		trust.Reasoning = "no data source configured for this turn"
		return Response{Answer: text, Trust: trust, Error: "no data source configured", ErrorClass: tool.ErrorClassFatal}, nil
	}

	executed := sql
	if sqlLeadRe.MatchString(sql) {
		executed = ApplyRowLimit(sql, p.rowLimit)
	}
	result, err := adapter.ExecuteQuery(ctx, executed)
	if err != nil {
		// Keep the SQL in the trust record so the user can inspect/retry.
		trust.Reasoning = fmt.Sprintf("execution failed: %v", err)
		return Response{Answer: text, Trust: trust, Error: trust.Reasoning, ErrorClass: tool.ClassifyError(err)}, nil
	}

	span.SetAttributes(telemetry.KeyRowCount.Int(result.RowCount))
	trust.RowCount = result.RowCount
	trust.Columns = result.Columns
	trust.ExecutionTimeMs = result.ExecutionTimeMs
	trust.SampleRows = result.Rows
	if len(trust.SampleRows) > SampleRowCap {
		trust.SampleRows = trust.SampleRows[:SampleRowCap]
	}

	return Response{
		Answer: text,
		Trust:  trust,
		ArtifactActions: []ArtifactAction{
			{Kind: "save_table", Label: "Save as table"},
			{Kind: "save_chart", Label: "Save as chart"},
			{Kind: "save_kpi", Label: "Save as KPI"},
		},
	}, nil
}

// loadSchema goes through the snapshot cache when one is configured.
func (p *Pipeline) loadSchema(ctx context.Context, sourceID string, adapter source.Adapter) (source.Schema, error) {
	if p.schemas != nil {
		return p.schemas.GetSchema(ctx, sourceID, adapter)
	}
	return adapter.GetSchema(ctx)
}

// buildMessages assembles the model context for one turn.
func (p *Pipeline) buildMessages(message, schemaSummary string) []model.Message {
	system := systemPromptHeader
	if schemaSummary != "" {
		system += "\n\nDatabase schema:\n" + schemaSummary
	}
	return []model.Message{
		model.NewSystemMessage(system),
		model.NewUserMessage(message),
	}
}
