//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"reflect"
	"strings"

	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// SchemaFor generates an object schema from a struct type's exported fields.
//
// Field names follow json tags; fields without omitempty are required.
// Supported kinds: string, bool, integers, floats, slices, maps with string
// keys, and nested structs up to a fixed depth.
func SchemaFor[T any]() *tool.Schema {
	var zero T
	return schemaForType(reflect.TypeOf(zero), 0)
}

const maxSchemaDepth = 8

func schemaForType(t reflect.Type, depth int) *tool.Schema {
	if t == nil || depth > maxSchemaDepth {
		return &tool.Schema{}
	}
	switch t.Kind() {
	case reflect.Pointer:
		return schemaForType(t.Elem(), depth)
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &tool.Schema{Type: "array", Items: schemaForType(t.Elem(), depth+1)}
	case reflect.Map:
		return &tool.Schema{Type: "object"}
	case reflect.Struct:
		schema := &tool.Schema{
			Type:       "object",
			Properties: map[string]*tool.Schema{},
		}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			optional := field.Type.Kind() == reflect.Pointer
			if jsonTag := field.Tag.Get("json"); jsonTag != "" {
				if jsonTag == "-" {
					continue
				}
				parts := strings.Split(jsonTag, ",")
				if parts[0] != "" {
					name = parts[0]
				}
				for _, p := range parts[1:] {
					if p == "omitempty" {
						optional = true
					}
				}
			}
			prop := schemaForType(field.Type, depth+1)
			if desc := field.Tag.Get("description"); desc != "" {
				prop.Description = desc
			}
			schema.Properties[name] = prop
			if !optional {
				schema.Required = append(schema.Required, name)
			}
		}
		return schema
	default:
		return &tool.Schema{}
	}
}
