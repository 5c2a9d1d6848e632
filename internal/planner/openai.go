package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// systemPrompt anchors the engine's role. The schema-first instruction is
// part of the prompt contract; session quality degrades without it.
const systemPrompt = `You are a database wizard. Your job is to:
1. Understand natural language database requests
2. Use the provided tools to inspect and change the database
3. Return clear, natural language answers

Always start by understanding what exists in the database before making changes.`

// Config holds the OpenAI-compatible endpoint settings. Temperature
// defaults to zero so repeated questions plan the same way.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client speaks the OpenAI chat-completions protocol to any compatible
// endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a client for the configured endpoint.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire types for the chat-completions protocol. Function arguments travel
// as a JSON string, not an object.
type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Propose sends the transcript and tool catalog to the engine and parses
// the reply. ctx cancellation passes through untouched; every other failure
// is a planner Error.
func (c *Client) Propose(ctx context.Context, transcript *models.Transcript, specs []models.ToolSpec) (*Proposal, error) {
	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(transcript),
		Tools:       buildTools(specs),
		Temperature: c.cfg.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Message: "marshaling request", cause: err}
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &Error{Message: "creating request", cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Message: "engine unreachable", cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "reading response", cause: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errorf("engine returned invalid JSON (status %d)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed.Error != nil {
			return nil, errorf("api error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, errorf("api error (status %d)", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return nil, errorf("engine returned no choices")
	}

	choice := parsed.Choices[0].Message
	proposal := &Proposal{
		Model: c.cfg.Model,
		Usage: models.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}

	if len(choice.ToolCalls) > 0 {
		calls, err := parseToolCalls(choice.ToolCalls)
		if err != nil {
			return nil, err
		}
		proposal.ToolCalls = calls
		if choice.Content != "" {
			slog.Debug("engine sent content alongside tool calls; ignoring it",
				"content_len", len(choice.Content))
		}
		return proposal, nil
	}

	answer := strings.TrimSpace(choice.Content)
	if answer == "" {
		return nil, errorf("engine returned neither an answer nor tool calls")
	}
	proposal.Answer = answer
	return proposal, nil
}

func buildTools(specs []models.ToolSpec) []chatTool {
	tools := make([]chatTool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return tools
}

// buildMessages serializes the transcript into chat messages. Every turn
// kind has a fixed mapping so the engine always sees the same shape of
// history it produced.
func buildMessages(transcript *models.Transcript) []chatMessage {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}

	for _, turn := range transcript.Turns() {
		switch turn.Kind {
		case models.TurnQuestion:
			messages = append(messages, chatMessage{Role: "user", Content: turn.Content})

		case models.TurnPlan:
			msg := chatMessage{Role: "assistant", Content: turn.Content}
			for _, call := range turn.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
					ID:   call.ID,
					Type: "function",
					Function: chatFunction{
						Name:      call.Operation,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, msg)

		case models.TurnToolResults:
			for _, result := range turn.Results {
				body, err := json.Marshal(result)
				if err != nil {
					body = []byte(`{"success":false,"message":"result could not be serialized"}`)
				}
				messages = append(messages, chatMessage{
					Role:       "tool",
					ToolCallID: result.CallID,
					Content:    string(body),
				})
			}

		case models.TurnAnswer:
			messages = append(messages, chatMessage{Role: "assistant", Content: turn.Content})

		case models.TurnPlannerError:
			messages = append(messages, chatMessage{
				Role: "user",
				Content: fmt.Sprintf("Your previous response could not be used: %s. "+
					"Reply with either tool calls or a final answer.", turn.Content),
			})
		}
	}
	return messages
}

func parseToolCalls(raw []chatToolCall) ([]models.ToolCall, error) {
	calls := make([]models.ToolCall, 0, len(raw))
	for _, tc := range raw {
		if tc.Function.Name == "" {
			return nil, errorf("tool call %q has no function name", tc.ID)
		}
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, errorf("tool call %s has unparseable arguments: %v", tc.Function.Name, err)
			}
		}
		calls = append(calls, models.ToolCall{
			ID:        tc.ID,
			Operation: tc.Function.Name,
			Arguments: args,
		})
	}
	return calls, nil
}
