// Package chat exposes the conversational entry points over the agent:
// a stateless turn handler and a store-backed variant that keeps per-chat
// history keyed by the chatmodel context.
package chat

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/agent"
	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/store"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "chat")

// Service answers user turns. The message store is optional: without one,
// Chat behaves like HandleTurn with empty history.
type Service struct {
	agent   *agent.Agent
	store   store.MessageStore
	options []agent.Option
}

// NewService creates a chat service over the agent.
// The options are applied to every turn.
func NewService(ag *agent.Agent, options ...agent.Option) *Service {
	return &Service{
		agent:   ag,
		options: options,
	}
}

// WithMessageStore sets the store used to persist per-chat history.
func (s *Service) WithMessageStore(ms store.MessageStore) *Service {
	s.store = ms
	return s
}

// HandleTurn runs a single turn over the provided history and returns the
// final answer text.
func (s *Service) HandleTurn(ctx context.Context, userInput string, history []llms.Message) (string, error) {
	res, err := s.agent.HandleTurn(ctx, userInput, history, s.options...)
	if err != nil {
		return "", err
	}
	if res.State == agent.StateAborted {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", s.agent.Name(),
			"status", "aborted",
			"rounds", res.Rounds,
		)
	}
	return res.Answer, nil
}

// Chat runs a turn for the chat in the context. Prior history is loaded from
// the message store, and the user text and final answer are appended after
// the turn. Tool traffic within the turn is not persisted.
func (s *Service) Chat(ctx context.Context, userInput string) (string, error) {
	if s.store == nil {
		return s.HandleTurn(ctx, userInput, nil)
	}
	if chatmodel.GetChatID(ctx) == "" {
		return "", errors.WithStack(store.ErrInvalidChatContext)
	}

	history := s.store.Messages(ctx)
	answer, err := s.HandleTurn(ctx, userInput, history)
	if err != nil {
		return "", err
	}

	if err := s.store.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, userInput)); err != nil {
		return "", errors.WithMessage(err, "failed to store user message")
	}
	if err := s.store.Add(ctx, llms.MessageFromTextParts(llms.RoleAI, answer)); err != nil {
		return "", errors.WithMessage(err, "failed to store answer")
	}
	return answer, nil
}

// Reset clears the stored history for the chat in the context.
func (s *Service) Reset(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Reset(ctx)
}
