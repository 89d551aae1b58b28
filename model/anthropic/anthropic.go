// Package anthropic adapts the Anthropic Messages API to the model
// interface. Tool requests arrive as tool_use content blocks; plain text
// blocks carry the assistant answer.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/model"
)

// DefaultMaxTokens bounds completion length when Config.MaxTokens is zero.
const DefaultMaxTokens = 4096

// Config holds adapter settings.
type Config struct {
	// APIKey authenticates requests. Empty falls back to ANTHROPIC_API_KEY.
	APIKey string
	// Model is the model identifier. Defaults to Claude 3.5 Sonnet.
	Model string
	// Temperature, when non-nil, is passed through on every call.
	Temperature *float64
	// MaxTokens caps completion length. Defaults to DefaultMaxTokens.
	MaxTokens int64
}

// Model implements model.Model on the Anthropic Messages API.
type Model struct {
	client *anthropic.Client
	cfg    Config
}

var _ model.Model = (*Model)(nil)

// New creates an Anthropic-backed model.
func New(cfg Config) *Model {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	client := anthropic.NewClient(opts...)
	return &Model{client: &client, cfg: cfg}
}

func (m *Model) Plan(ctx context.Context, req model.Request) (*core.WorkflowPlan, error) {
	system := model.SystemPrompt + "\n\n" + model.PlanInstruction(req.Workflow)
	calls, _, err := m.complete(ctx, system, req, true)
	if err != nil {
		return nil, err
	}
	return model.PlanFromCalls(req.Workflow, calls), nil
}

func (m *Model) NextStep(ctx context.Context, req model.Request) (model.Decision, error) {
	system := model.SystemPrompt + "\n\nIf the gathered results answer the question, respond with the answer. Otherwise request the next tool calls."
	calls, text, err := m.complete(ctx, system, req, true)
	if err != nil {
		return model.Decision{}, err
	}
	if len(calls) > 0 {
		return model.Decision{ToolCalls: calls}, nil
	}
	if text == "" {
		return model.Decision{}, model.ErrNoDecision
	}
	return model.Decision{FinalAnswer: text}, nil
}

func (m *Model) Synthesize(ctx context.Context, req model.Request) (string, error) {
	_, text, err := m.complete(ctx, model.SystemPrompt, req, false)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", model.ErrNoDecision
	}
	return text, nil
}

func (m *Model) Info() model.Info {
	return model.Info{Name: m.cfg.Model, Provider: "anthropic", SupportsTools: true}
}

// complete runs one Messages call and splits the response into requested
// tool calls and concatenated text.
func (m *Model) complete(ctx context.Context, system string, req model.Request, withTools bool) ([]core.ToolCall, string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.cfg.Model),
		Messages:  buildMessages(req),
		MaxTokens: m.cfg.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
	}
	if m.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*m.cfg.Temperature)
	}
	if withTools && len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var calls []core.ToolCall
	var text string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := map[string]any{}
			if toolBlock.Input != nil {
				raw, err := json.Marshal(toolBlock.Input)
				if err == nil {
					err = json.Unmarshal(raw, &args)
				}
				if err != nil {
					return nil, "", fmt.Errorf("anthropic: decode input for %s: %w", toolBlock.Name, err)
				}
			}
			calls = append(calls, core.ToolCall{Name: toolBlock.Name, Args: args})
		}
	}
	return calls, text, nil
}

func buildMessages(req model.Request) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	for _, h := range req.History {
		block := anthropic.NewTextBlock(h.Content)
		switch h.Role {
		case core.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	return append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(model.UserContent(req))))
}

func buildTools(descs []core.ToolDescriptor) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(descs))
	for i, d := range descs {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := d.Parameters["properties"]; ok {
			schema.Properties = props
		}
		switch required := d.Parameters["required"].(type) {
		case []string:
			schema.Required = required
		case []any:
			for _, r := range required {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		tools[i] = anthropic.ToolUnionParamOfTool(schema, d.Name)
	}
	return tools
}
