//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package deeptool

import (
	"context"
	"encoding/json"

	"trpc.group/trpc-go/trpc-dataagent-go/internal/jsonblock"
	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/model"
)

const classifierPrompt = `You route user messages to structured actions for a data project.
The only supported actions are:
- create_workflow: create a scheduled job. payload: {"name": string, "description"?: string, "schedule"?: cron string}
- create_memory_rule: record a standing instruction. payload: {"text": string, "topics"?: [string]}
- list_workflows: list the project's workflows. payload: {}
- list_memory_rules: list the project's standing instructions. payload: {}
- list_workflow_runs: list recent runs of one workflow. payload: {"workflow_id": string, "limit"?: number}
- none: the message maps to no supported action. payload: {}

Respond with a single JSON object:
{"action": "<one of the above>", "summary": "<one sentence describing what the action will do>", "payload": {...}, "message": "<answer to show the user when action is none>"}
Pick "none" whenever you are not certain.`

// classification is the parsed classifier output.
type classification struct {
	action  ActionKind
	summary string
	payload json.RawMessage
	message string
}

// classifierOutput mirrors the JSON the model is asked to produce.
type classifierOutput struct {
	Action  string          `json:"action"`
	Summary string          `json:"summary"`
	Payload json.RawMessage `json:"payload"`
	Message string          `json:"message"`
}

// classify asks the model for an action and normalizes the result. Anything
// outside the enum collapses to ActionNone.
func (t *Tool) classify(ctx context.Context, message string) (classification, error) {
	text, err := t.model.Generate(ctx, []model.Message{
		model.NewSystemMessage(classifierPrompt),
		model.NewUserMessage(message),
	}, model.Options{MaxTokens: 512})
	if err != nil {
		return classification{}, err
	}

	var out classifierOutput
	if err := jsonblock.Unmarshal(text, &out); err != nil {
		return classification{}, err
	}

	action := ActionKind(out.Action)
	if modeFor(action) == ModeNone {
		if action != ActionNone && action != "" {
			log.Warnf("classifier produced out-of-enum action %q, treating as none", out.Action)
		}
		return classification{action: ActionNone, message: out.Message}, nil
	}
	if modeFor(action) == ModeConfirm && out.Summary == "" {
		// A mutation the user cannot review is not offered at all.
		return classification{action: ActionNone, message: out.Message}, nil
	}
	payload := out.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return classification{
		action:  action,
		summary: out.Summary,
		payload: payload,
		message: out.Message,
	}, nil
}
