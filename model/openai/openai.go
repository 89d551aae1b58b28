// Package openai adapts the OpenAI Chat Completions API to the model
// interface. Tool requests use the function-calling protocol; responses
// without tool calls carry the assistant text directly.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/model"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config holds adapter settings.
type Config struct {
	// APIKey authenticates requests. Empty falls back to OPENAI_API_KEY.
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
	// Model is the model identifier. Defaults to DefaultModel.
	Model string
	// Temperature, when non-nil, is passed through on every call.
	Temperature *float64
	// MaxTokens caps completion length when positive.
	MaxTokens int
}

// Model implements model.Model on the OpenAI Chat Completions API.
type Model struct {
	client *openai.Client
	cfg    Config
}

var _ model.Model = (*Model)(nil)

// New creates an OpenAI-backed model.
func New(cfg Config) *Model {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client := openai.NewClient(opts...)
	return &Model{client: &client, cfg: cfg}
}

func (m *Model) Plan(ctx context.Context, req model.Request) (*core.WorkflowPlan, error) {
	system := model.SystemPrompt + "\n\n" + model.PlanInstruction(req.Workflow)
	msg, err := m.complete(ctx, system, req, true)
	if err != nil {
		return nil, err
	}
	calls, err := toolCallsFromMessage(msg)
	if err != nil {
		return nil, err
	}
	return model.PlanFromCalls(req.Workflow, calls), nil
}

func (m *Model) NextStep(ctx context.Context, req model.Request) (model.Decision, error) {
	system := model.SystemPrompt + "\n\nIf the gathered results answer the question, respond with the answer. Otherwise request the next tool calls."
	msg, err := m.complete(ctx, system, req, true)
	if err != nil {
		return model.Decision{}, err
	}
	calls, err := toolCallsFromMessage(msg)
	if err != nil {
		return model.Decision{}, err
	}
	if len(calls) > 0 {
		return model.Decision{ToolCalls: calls}, nil
	}
	if msg.Content == "" {
		return model.Decision{}, model.ErrNoDecision
	}
	return model.Decision{FinalAnswer: msg.Content}, nil
}

func (m *Model) Synthesize(ctx context.Context, req model.Request) (string, error) {
	msg, err := m.complete(ctx, model.SystemPrompt, req, false)
	if err != nil {
		return "", err
	}
	if msg.Content == "" {
		return "", model.ErrNoDecision
	}
	return msg.Content, nil
}

func (m *Model) Info() model.Info {
	return model.Info{Name: m.cfg.Model, Provider: "openai", SupportsTools: true}
}

func (m *Model) complete(ctx context.Context, system string, req model.Request, withTools bool) (*openai.ChatCompletionMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    m.cfg.Model,
		Messages: buildMessages(system, req),
	}
	if m.cfg.Temperature != nil {
		params.Temperature = openai.Float(*m.cfg.Temperature)
	}
	if m.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(m.cfg.MaxTokens))
	}
	if withTools && len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, model.ErrNoDecision
	}
	return &resp.Choices[0].Message, nil
}

func buildMessages(system string, req model.Request) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, h := range req.History {
		switch h.Role {
		case core.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(model.UserContent(req)))
	return msgs
}

func buildTools(descs []core.ToolDescriptor) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(descs))
	for _, d := range descs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Parameters),
			},
		})
	}
	return tools
}

func toolCallsFromMessage(msg *openai.ChatCompletionMessage) ([]core.ToolCall, error) {
	calls := make([]core.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("openai: decode arguments for %s: %w", tc.Function.Name, err)
			}
		}
		calls = append(calls, core.ToolCall{Name: tc.Function.Name, Args: args})
	}
	return calls, nil
}
