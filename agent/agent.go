// Package agent implements the tool calling loop that drives a single
// conversation turn: send the conversation to the model, execute the tool
// calls it requests, and repeat until the model answers in text or the
// round cap is reached.
package agent

import (
	"context"

	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/tools"
	"github.com/effective-security/xlog"
)

//go:generate mockgen -destination=../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/persona/pkg/llms  Model
//go:generate mockgen -source=agent.go -destination=../mocks/mockagent/agent_mock.gen.go  -package mockagent

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "agent")

// IAgent describes the agent to callbacks and to other agents.
type IAgent interface {
	// Name returns the name of the agent.
	Name() string
	// Description returns the description of the agent, to be used in the
	// prompt of other agents or LLMs.
	Description() string
}

// Callback receives notifications about turn and tool execution events.
// Implementations must be safe for concurrent use.
type Callback interface {
	tools.Callback

	// OnAgentStart is called when a turn starts.
	OnAgentStart(ctx context.Context, agent IAgent, input string)
	// OnAgentEnd is called when a turn completes with an answer.
	OnAgentEnd(ctx context.Context, agent IAgent, input string, resp *llms.ContentResponse, messages []llms.Message)
	// OnAgentError is called when a turn fails.
	OnAgentError(ctx context.Context, agent IAgent, input string, err error, messages []llms.Message)
	// OnAgentLLMCallStart is called before each model call with the full payload.
	OnAgentLLMCallStart(ctx context.Context, agent IAgent, llm llms.Model, payload []llms.Message)
	// OnAgentLLMCallEnd is called after each successful model call.
	OnAgentLLMCallEnd(ctx context.Context, agent IAgent, llm llms.Model, resp *llms.ContentResponse)
	// OnAgentAborted is called when the round cap is reached and the turn
	// returns the best available answer instead of a final one.
	OnAgentAborted(ctx context.Context, agent IAgent, input string, rounds int)
}

// State is the phase of the turn loop.
type State int

const (
	// StateAwaitingModel indicates the loop is waiting for a model response.
	StateAwaitingModel State = iota
	// StateAwaitingTools indicates the loop is executing requested tool calls.
	StateAwaitingTools
	// StateDone indicates the model produced a final text answer.
	StateDone
	// StateAborted indicates the round cap was reached before a final answer.
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateAwaitingTools:
		return "awaiting_tools"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// TurnResult is the outcome of a single conversation turn.
type TurnResult struct {
	// Answer is the assistant text to show the user. On StateAborted it is
	// the content of the most recent model response, which may be empty if
	// the model only requested tool calls.
	Answer string
	// State is the terminal state of the turn, StateDone or StateAborted.
	State State
	// Rounds is the number of model calls made during the turn.
	Rounds int
	// ToolCalls is the number of tool calls executed during the turn.
	ToolCalls int
	// Messages is the conversation after the turn, without the system
	// message. On StateAborted the last message carries the tool call
	// requests that were never executed.
	Messages []llms.Message
	// Response is the last response received from the model.
	Response *llms.ContentResponse
}
