package ai

import (
	"context"
)

// Schema describes the JSON document a model must answer with.
type Schema struct {
	Type        string             `json:"type"` // object, array, string, integer, number, boolean
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

func object(required []string, props map[string]*Schema) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

func arrayOf(items *Schema, desc string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: desc}
}

func str(desc string) *Schema {
	return &Schema{Type: TypeString, Description: desc}
}

func integer(desc string) *Schema {
	return &Schema{Type: TypeInteger, Description: desc}
}

type Request struct {
	Flow   string
	Prompt string
	Schema *Schema
}

// Model is a hosted generative model answering with a JSON document matching Request.Schema.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}
