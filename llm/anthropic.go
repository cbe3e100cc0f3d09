// Package llm adapts github.com/anthropics/anthropic-sdk-go to
// agent.Model. The executor loop needs a structured ActionReply, not
// free text, so every request forces a single synthetic tool whose
// input schema is the agent's action schema (C4) and reads the
// model's tool_use block back as the reply.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentrt/agent"
)

// actionToolName is the synthetic tool forced on every request so the
// model's reply arrives as structured tool input instead of prose.
const actionToolName = "submit_action"

// MessagesClient captures the subset of the Anthropic SDK used here,
// so tests can substitute a stub for *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements agent.Model on top of the Anthropic Messages API.
type Client struct {
	messages  MessagesClient
	model     string
	maxTokens int64
}

// Options configures a Client.
type Options struct {
	// Model is the Anthropic model identifier, e.g. string(sdk.ModelClaudeSonnet4_5).
	Model string
	// MaxTokens bounds the completion; defaults to 4096 when zero.
	MaxTokens int64
}

// New builds a Client from an explicit Messages client, so callers can
// pass either *anthropic.Client's Messages service or a test double.
func New(messages MessagesClient, opts Options) (*Client, error) {
	if messages == nil {
		return nil, errors.New("llm: messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("llm: model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{messages: messages, model: opts.Model, maxTokens: maxTokens}, nil
}

// NewFromAPIKey builds a Client using the SDK's default HTTP transport
// authenticated with apiKey.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, opts)
}

var (
	_ agent.Model          = (*Client)(nil)
	_ agent.ModelDescriber = (*Client)(nil)
)

// ModelName returns the Anthropic model identifier this client calls,
// for telemetry.
func (c *Client) ModelName() string { return c.model }

// Generate issues one non-streaming Messages.New call and decodes the
// forced tool's input as the structured ActionReply.
func (c *Client) Generate(ctx context.Context, request agent.ModelRequest) (agent.ActionReply, error) {
	if len(request.Messages) == 0 {
		return agent.ActionReply{}, errors.New("llm: at least one message is required")
	}

	params, err := c.buildParams(request)
	if err != nil {
		return agent.ActionReply{}, err
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return agent.ActionReply{}, fmt.Errorf("llm: messages.new: %w", err)
	}
	return extractActionReply(msg)
}

func (c *Client) buildParams(request agent.ModelRequest) (sdk.MessageNewParams, error) {
	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam

	for _, m := range request.Messages {
		switch m.Role {
		case agent.RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case agent.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case agent.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			return sdk.MessageNewParams{}, fmt.Errorf("llm: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return sdk.MessageNewParams{}, errors.New("llm: at least one user/assistant message is required")
	}

	schemaFields, ok := request.ActionSchema["properties"]
	if !ok {
		return sdk.MessageNewParams{}, errors.New("llm: action schema is missing properties")
	}
	_ = schemaFields

	tool := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: request.ActionSchema}, actionToolName)
	if tool.OfTool != nil {
		tool.OfTool.Description = sdk.String("Submit the next structured action for this run.")
	}

	params := sdk.MessageNewParams{
		Model:      sdk.Model(c.model),
		MaxTokens:  c.maxTokens,
		Messages:   conversation,
		Tools:      []sdk.ToolUnionParam{tool},
		ToolChoice: sdk.ToolChoiceParamOfTool(actionToolName),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params, nil
}

func extractActionReply(msg *sdk.Message) (agent.ActionReply, error) {
	if msg == nil {
		return agent.ActionReply{}, errors.New("llm: response message is nil")
	}
	for _, block := range msg.Content {
		if block.Type != "tool_use" || block.Name != actionToolName {
			continue
		}
		encoded, err := json.Marshal(block.Input)
		if err != nil {
			return agent.ActionReply{}, fmt.Errorf("llm: re-encode tool input: %w", err)
		}
		var reply agent.ActionReply
		if err := json.Unmarshal(encoded, &reply); err != nil {
			return agent.ActionReply{}, fmt.Errorf("llm: decode action reply: %w", err)
		}
		return reply, nil
	}
	return agent.ActionReply{}, fmt.Errorf("llm: response did not contain a %q tool call", actionToolName)
}
