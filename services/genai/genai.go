package genaisvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
)

var ErrNotConfigured = errors.New("genai: no api key configured")

// Model answers ai.Requests with a Gemini model through the Gemini API.
type Model struct {
	client *genai.Client
	model  string
	logger core.Logger
}

var _ ai.Model = (*Model)(nil)

func NewModel(ctx context.Context, conf *core.Config, logger core.Logger) (*Model, error) {
	if conf.GenAI.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.GenAI.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "genai.NewClient")
	}
	return &Model{client: client, model: conf.GenAI.Model, logger: logger}, nil
}

func (m *Model) Generate(ctx context.Context, req ai.Request) (string, error) {
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if req.Schema != nil {
		config.ResponseSchema = convertSchema(req.Schema)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(req.Prompt), config)
	if err != nil {
		m.logger.Error(fmt.Sprintf("generating %s: %v", req.Flow, err), err, map[string]interface{}{"flow": req.Flow})
		return "", errors.Wrap(err, "genai.GenerateContent")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("genai: empty response")
	}
	return text, nil
}

var schemaTypes = map[string]genai.Type{
	ai.TypeObject:  genai.TypeObject,
	ai.TypeArray:   genai.TypeArray,
	ai.TypeString:  genai.TypeString,
	ai.TypeInteger: genai.TypeInteger,
	ai.TypeNumber:  genai.TypeNumber,
	ai.TypeBoolean: genai.TypeBoolean,
}

func convertSchema(s *ai.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       convertSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchema(prop)
		}
	}
	return out
}

// Disabled is used when no API key is configured; every flow fails with ai.ErrGeneration.
type Disabled struct{}

func (Disabled) Generate(context.Context, ai.Request) (string, error) {
	return "", ErrNotConfigured
}
