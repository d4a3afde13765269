package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/pkg/llmutils"
	"github.com/effective-security/persona/pkg/metricskey"
	"github.com/effective-security/persona/pkg/prompts"
	"github.com/effective-security/persona/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Agent runs the tool calling loop over a fixed set of tools.
type Agent struct {
	LLM llms.Model

	registry *tools.Registry

	cfg         *Config
	name        string
	description string
	sysprompt   prompts.FormatPrompter
	onPrompt    ProvidePromptInputsFunc
}

var _ IAgent = (*Agent)(nil)

// New initializes the agent with the model and the system prompt.
func New(llmModel llms.Model, sysprompt prompts.FormatPrompter, options ...Option) *Agent {
	registry, _ := tools.NewRegistry()
	return &Agent{
		cfg:         NewConfig(options...),
		LLM:         llmModel,
		registry:    registry,
		sysprompt:   sysprompt,
		name:        "Persona Agent",
		description: "A conversational agent that answers as the represented person.",
	}
}

func (a *Agent) GetCallConfig(opts ...Option) *Config {
	return a.cfg.Apply(opts...)
}

// WithName sets the name of the agent, when used in a prompt of other agents or LLMs.
func (a *Agent) WithName(name string) *Agent {
	a.name = name
	return a
}

// WithDescription sets the description of the agent, to be used in the prompt of other agents or LLMs.
func (a *Agent) WithDescription(description string) *Agent {
	a.description = description
	return a
}

// Name returns the name of the agent.
func (a *Agent) Name() string {
	return a.name
}

// Description returns the description of the agent.
func (a *Agent) Description() string {
	return a.description
}

// GetTools returns the registered tools.
func (a *Agent) GetTools() []tools.ITool {
	return a.registry.Tools()
}

// WithTools adds new tools to the agent, existing tools are not replaced.
// Tools that fail to register are skipped.
func (a *Agent) WithTools(list ...tools.ITool) *Agent {
	for _, tool := range list {
		if err := a.registry.Register(tool); err != nil {
			logger.KV(xlog.WARNING,
				"agent", a.name,
				"status", "tool_not_registered",
				"err", err.Error(),
			)
		}
	}
	return a
}

// WithRegistry replaces the tool registry.
func (a *Agent) WithRegistry(registry *tools.Registry) *Agent {
	if registry != nil {
		a.registry = registry
	}
	return a
}

// WithPromptInputProvider sets the callback that provides extra prompt
// inputs for each turn.
func (a *Agent) WithPromptInputProvider(cb ProvidePromptInputsFunc) {
	a.onPrompt = cb
}

func (a *Agent) FormatPrompt(promptInputs map[string]any) (llms.PromptValue, error) {
	return a.sysprompt.FormatPrompt(llmutils.MergeInputs(a.cfg.PromptInput, promptInputs))
}

func (a *Agent) GetPromptInputVariables() []string {
	return a.sysprompt.GetInputVariables()
}

// GetSystemPrompt generates the system prompt for the agent.
func (a *Agent) GetSystemPrompt(ctx context.Context, input string, promptInputs map[string]any) (string, error) {
	if a.onPrompt != nil {
		extra, err := a.onPrompt(ctx, input)
		if err != nil {
			return "", errors.WithMessage(err, "failed to get prompt inputs")
		}
		if len(extra) > 0 {
			promptInputs = llmutils.MergeInputs(promptInputs, extra)
		}
	}

	promptValue, err := a.FormatPrompt(promptInputs)
	if err != nil {
		return "", err
	}

	// Convert the prompt value to a string.
	systemPrompt := strings.TrimRight(promptValue.String(), "\n") // Ensure no trailing newline.
	return systemPrompt, nil
}

// HandleTurn runs one conversation turn: the user input is appended to the
// history and the model is called until it answers in text or the round cap
// is reached. The history must not include the system message.
func (a *Agent) HandleTurn(ctx context.Context, input string, history []llms.Message, opts ...Option) (*TurnResult, error) {
	started := time.Now()
	defer metricskey.PerfAgentTurn.MeasureSince(started, a.name)

	cfg := a.GetCallConfig(opts...)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnAgentStart(ctx, a, input)
	}

	res, messages, err := a.run(ctx, cfg, input, history)
	if err != nil {
		metricskey.StatsAgentTurnsFailed.IncrCounter(1, a.name)
		if callback != nil {
			callback.OnAgentError(ctx, a, input, err, messages)
		}
		return nil, err
	}

	if res.State == StateAborted {
		metricskey.StatsAgentTurnsAborted.IncrCounter(1, a.name)
	} else {
		metricskey.StatsAgentTurnsSucceeded.IncrCounter(1, a.name)
	}
	if callback != nil {
		callback.OnAgentEnd(ctx, a, input, res.Response, messages)
	}
	return res, nil
}

// run executes the turn loop, generating a response based on the input and
// the conversation history.
func (a *Agent) run(ctx context.Context, cfg *Config, input string, history []llms.Message) (*TurnResult, []llms.Message, error) {
	systemPrompt, err := a.GetSystemPrompt(ctx, input, cfg.PromptInput)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to format system prompt")
	}

	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
	}
	messages = append(messages, history...)
	if input != "" {
		messages = append(messages, llms.MessageFromTextParts(llms.RoleHuman, input))
	}

	toolDefs := a.registry.Schemas()
	var extraOptions []Option
	if len(toolDefs) > 0 {
		prov := a.LLM.GetProviderType()
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return nil, messages, errors.Newf("agent %s: the LLM does not support function calling", a.name)
		}
		extraOptions = append(extraOptions, WithTools(toolDefs))
	}
	callOpts := cfg.GetCallOptions(extraOptions...)

	agentName := a.Name()
	modelName := a.LLM.GetName()

	exec := tools.NewExecutor(a.registry).WithAgentName(agentName)
	if cfg.CallbackHandler != nil {
		exec = exec.WithCallback(cfg.CallbackHandler)
	}

	maxRounds := values.NumbersCoalesce(cfg.MaxRounds, DefaultMaxRounds)

	var resp *llms.ContentResponse
	var answer string
	var rounds, executedCalls int

	state := StateAwaitingModel
	for state == StateAwaitingModel {
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAgentLLMCallStart(ctx, a, a.LLM, messages)
		}

		bytesSent := llmutils.CountMessagesContentSize(messages)
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), agentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

		llmStarted := time.Now()
		resp, err = a.LLM.GenerateContent(ctx, messages, callOpts...)
		metricskey.PerfModelCall.MeasureSince(llmStarted, agentName, modelName)
		if err != nil {
			return nil, messages, errors.WithMessage(err, "failed to generate content from LLM")
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAgentLLMCallEnd(ctx, a, a.LLM, resp)
		}

		bytesReceived := llmutils.CountResponseContentSize(resp)
		metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), agentName, modelName)
		metricskey.StatsLLMBytesTotal.IncrCounter(float64(bytesSent+bytesReceived), agentName, modelName)

		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), agentName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), agentName, modelName)

		if len(resp.Choices) == 0 {
			logger.ContextKV(ctx, xlog.ERROR,
				"agent", agentName,
				"status", "empty_choices",
				"input", slices.StringUpto(input, 64),
			)
			return nil, messages, errors.Newf("agent %s: LLM returned empty response", agentName)
		}

		rounds++
		answer = combineChoices(resp.Choices)

		toolCalls, callMessages := a.collectToolCalls(ctx, resp)
		if len(toolCalls) == 0 {
			state = StateDone
			break
		}

		messages = append(messages, callMessages...)

		if rounds >= maxRounds {
			state = StateAborted
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agentName,
				"status", "round_cap_reached",
				"rounds", rounds,
				"pending_tool_calls", len(toolCalls),
				"input", slices.StringUpto(input, 64),
			)
			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnAgentAborted(ctx, a, input, rounds)
			}
			break
		}

		state = StateAwaitingTools
		for _, toolResponse := range exec.Execute(ctx, toolCalls) {
			messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, toolResponse))
		}
		executedCalls += len(toolCalls)
		state = StateAwaitingModel
	}

	if state == StateDone {
		messages = append(messages, llms.MessageFromTextParts(llms.RoleAI, answer))
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agentName,
		"status", "turn_complete",
		"state", state.String(),
		"rounds", rounds,
		"tool_calls", executedCalls,
		"choices_count", len(resp.Choices),
	)

	res := &TurnResult{
		Answer:    answer,
		State:     state,
		Rounds:    rounds,
		ToolCalls: executedCalls,
		Messages:  messages[1:],
		Response:  resp,
	}
	return res, messages, nil
}

// collectToolCalls normalizes the tool call requests in the response and
// returns them together with the assistant messages that carry them.
func (a *Agent) collectToolCalls(ctx context.Context, resp *llms.ContentResponse) ([]llms.ToolCall, []llms.Message) {
	var toolCalls []llms.ToolCall
	var callMessages []llms.Message

	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)

			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", a.name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool", toolCall.FunctionCall.Name,
			)
		}
		if len(choiceToolCalls) == 0 {
			continue
		}
		toolCalls = append(toolCalls, choiceToolCalls...)
		callMessages = append(callMessages, llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...))
	}

	return toolCalls, callMessages
}

func combineChoices(choices []*llms.ContentChoice) string {
	if len(choices) == 1 {
		return choices[0].Content
	}
	var combined strings.Builder
	for i, choice := range choices {
		if i > 0 {
			combined.WriteString("\n\n")
		}
		combined.WriteString(choice.Content)
	}
	return combined.String()
}
