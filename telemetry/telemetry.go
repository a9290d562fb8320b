//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides OpenTelemetry helpers for the agent core.
//
// The core only creates spans; exporter and provider setup is the host
// application's responsibility.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "trpc.group/trpc-go/trpc-dataagent-go"

// Tracer is the tracer used for all spans emitted by this module.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// Attribute keys shared across components.
var (
	// KeyServer is the tool provider (server) name attribute.
	KeyServer = attribute.Key("dataagent.server")
	// KeyTool is the tool name attribute.
	KeyTool = attribute.Key("dataagent.tool")
	// KeyOrganizationID is the tenant organization attribute.
	KeyOrganizationID = attribute.Key("dataagent.organization_id")
	// KeySourceID is the data source attribute.
	KeySourceID = attribute.Key("dataagent.source_id")
	// KeyModel is the language model name attribute.
	KeyModel = attribute.Key("dataagent.model")
	// KeyRowCount is the query result row count attribute.
	KeyRowCount = attribute.Key("dataagent.row_count")
)
