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
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// UserDetailsToolName is the function name advertised to the model.
const UserDetailsToolName = "record_user_details"

// UserDetailsRequest represents the tool input.
type UserDetailsRequest struct {
	Email string `json:"email" yaml:"email" validate:"required,email" jsonschema:"title=Email,description=The email address of this user."`
	Name  string `json:"name,omitempty" yaml:"name,omitempty" jsonschema:"title=Name,description=The user's name if they provided it."`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty" jsonschema:"title=Notes,description=Any additional information about the conversation that's worth recording to give context."`
}

// UserDetailsTool records contact details a site visitor chose to leave.
type UserDetailsTool struct {
	name        string
	description string
	funcParams  *jsonschema.Schema

	sender   notify.Sender
	validate *validator.Validate
}

var _ tools.Tool[UserDetailsRequest, Result] = (*UserDetailsTool)(nil)

// NewUserDetails creates the record_user_details tool.
func NewUserDetails(sender notify.Sender) (*UserDetailsTool, error) {
	sc, err := schema.New(reflect.TypeOf(UserDetailsRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	if sender == nil {
		sender = notify.Noop{}
	}
	return &UserDetailsTool{
		name:        UserDetailsToolName,
		description: "Use this tool to record that a user is interested in being in touch and provided an email address",
		funcParams:  sc.Parameters,
		sender:      sender,
		validate:    validator.New(),
	}, nil
}

func (t *UserDetailsTool) Name() string {
	return t.name
}

func (t *UserDetailsTool) Description() string {
	return t.description
}

func (t *UserDetailsTool) Parameters() *jsonschema.Schema {
	return t.funcParams
}

// Run records the contact details and notifies the configured channel.
// The notification is best-effort: the recording is acknowledged even when
// the channel is down.
func (t *UserDetailsTool) Run(ctx context.Context, req *UserDetailsRequest) (*Result, error) {
	if err := t.validate.Struct(req); err != nil {
		return nil, errors.WithMessage(err, "invalid request")
	}

	name := values.StringsCoalesce(req.Name, "Name not provided")
	notes := values.StringsCoalesce(req.Notes, "not provided")

	text := fmt.Sprintf("Recording interest from %s with email %s and notes %s", name, req.Email, notes)
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
		"email", req.Email,
	)

	return Ack(), nil
}

func (t *UserDetailsTool) Call(ctx context.Context, input string) (string, error) {
	var req UserDetailsRequest
	if err := chatmodel.UnmarshalInput(input, &req); err != nil {
		return "", err
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(out), nil
}
