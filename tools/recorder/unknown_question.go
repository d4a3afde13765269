package recorder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/pkg/llmutils"
	"github.com/effective-security/persona/pkg/notify"
	"github.com/effective-security/persona/pkg/schema"
	"github.com/effective-security/persona/tools"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// UnknownQuestionToolName is the function name advertised to the model.
const UnknownQuestionToolName = "record_unknown_question"

// UnknownQuestionRequest represents the tool input.
type UnknownQuestionRequest struct {
	Question string `json:"question" yaml:"question" validate:"required" jsonschema:"title=Question,description=The question that couldn't be answered."`
}

// UnknownQuestionTool records a question the agent could not answer.
type UnknownQuestionTool struct {
	name        string
	description string
	funcParams  *jsonschema.Schema

	sender   notify.Sender
	validate *validator.Validate
}

var _ tools.Tool[UnknownQuestionRequest, Result] = (*UnknownQuestionTool)(nil)

// NewUnknownQuestion creates the record_unknown_question tool.
func NewUnknownQuestion(sender notify.Sender) (*UnknownQuestionTool, error) {
	sc, err := schema.New(reflect.TypeOf(UnknownQuestionRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	if sender == nil {
		sender = notify.Noop{}
	}
	return &UnknownQuestionTool{
		name:        UnknownQuestionToolName,
		description: "Always use this tool to record any question that couldn't be answered as you didn't know the answer",
		funcParams:  sc.Parameters,
		sender:      sender,
		validate:    validator.New(),
	}, nil
}

func (t *UnknownQuestionTool) Name() string {
	return t.name
}

func (t *UnknownQuestionTool) Description() string {
	return t.description
}

func (t *UnknownQuestionTool) Parameters() *jsonschema.Schema {
	return t.funcParams
}

// Run records the question and notifies the configured channel.
// The notification is best-effort: the recording is acknowledged even when
// the channel is down.
func (t *UnknownQuestionTool) Run(ctx context.Context, req *UnknownQuestionRequest) (*Result, error) {
	if err := t.validate.Struct(req); err != nil {
		return nil, errors.WithMessage(err, "invalid request")
	}

	text := fmt.Sprintf("Recording %s asked that I couldn't answer", req.Question)
	if err := t.sender.Send(ctx, text); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"tool", t.name,
			"status", "notify_failed",
			"err", err.Error(),
		)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", t.name,
		"status", "recorded",
		"question", req.Question,
	)

	return Ack(), nil
}

func (t *UnknownQuestionTool) Call(ctx context.Context, input string) (string, error) {
	var req UnknownQuestionRequest
	if err := chatmodel.UnmarshalInput(input, &req); err != nil {
		return "", err
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(out), nil
}
