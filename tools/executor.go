package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/pkg/llmutils"
	"github.com/effective-security/persona/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// ErrorResult is the structured payload returned to the model when a tool
// call cannot be completed.
type ErrorResult struct {
	Error string `json:"error"`
}

// Executor runs batches of tool call requests against a Registry.
type Executor struct {
	registry  *Registry
	agentName string
	callback  Callback
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
	}
}

// WithAgentName sets the agent name reported in logs and callbacks.
func (e *Executor) WithAgentName(name string) *Executor {
	e.agentName = name
	return e
}

// WithCallback sets the callback notified on tool execution events.
func (e *Executor) WithCallback(cb Callback) *Executor {
	e.callback = cb
	return e
}

// Execute runs the batch of tool call requests and returns exactly one
// response per request, in request order. Requests run concurrently.
// Individual failures never abort the batch: an unresolved name or a failed
// call produces a structured error payload for the model to adapt to.
func (e *Executor) Execute(ctx context.Context, requests []llms.ToolCall) []llms.ToolCallResponse {
	if len(requests) == 0 {
		return nil
	}

	type toolCallResult struct {
		response llms.ToolCallResponse
		index    int // Index in the original requests slice
	}

	// Channel to collect results - buffered to prevent deadlock
	resultChan := make(chan toolCallResult, len(requests))

	var wg sync.WaitGroup
	wg.Add(len(requests))

	for i, toolCall := range requests {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			resultChan <- toolCallResult{
				response: e.executeOne(ctx, tc),
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in order using the index
	res := make([]llms.ToolCallResponse, len(requests))
	for result := range resultChan {
		if result.index >= 0 && result.index < len(res) {
			res[result.index] = result.response
		}
	}

	return res
}

func (e *Executor) executeOne(ctx context.Context, tc llms.ToolCall) llms.ToolCallResponse {
	toolName := tc.FunctionCall.Name
	toolArgs := tc.FunctionCall.Arguments

	tool, ok := e.registry.Lookup(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if e.callback != nil {
			e.callback.OnToolNotFound(ctx, e.agentName, toolName)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", e.agentName,
			"status", "tool_not_found",
			"tool", toolName,
			"available_tools", strings.Join(e.registry.Names(), ", "),
		)
		return llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       toolName,
			Content:    llmutils.ToJSON(ErrorResult{Error: fmt.Sprintf("Tool %s not found", toolName)}),
		}
	}

	if e.callback != nil {
		e.callback.OnToolStart(ctx, tool, e.agentName, toolArgs)
	}

	started := time.Now()
	content, err := tool.Call(ctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if e.callback != nil {
			e.callback.OnToolError(ctx, tool, e.agentName, toolArgs, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", e.agentName,
			"status", "tool_call_failed",
			"tool", toolName,
			"err", err.Error(),
		)
		return llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       toolName,
			Content:    llmutils.ToJSON(ErrorResult{Error: err.Error()}),
		}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	if e.callback != nil {
		e.callback.OnToolEnd(ctx, tool, e.agentName, toolArgs, content)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", e.agentName,
		"status", "tool_call_response",
		"tool_call_id", tc.ID,
		"tool", toolName,
		"content_length", len(content),
	)

	return llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       toolName,
		Content:    content,
	}
}
