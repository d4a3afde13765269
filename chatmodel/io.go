package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// InputRequest is the default input for a chat turn.
type InputRequest struct {
	Input string `json:"input" yaml:"input" jsonschema:"title=Input,description=The message sent by the user to the assistant."`
}

func NewInputRequest(input string) *InputRequest {
	return &InputRequest{
		Input: input,
	}
}

func (r *InputRequest) ParseInput(input string) error {
	if err := json.Unmarshal([]byte(input), r); err != nil {
		return errors.WithStack(ErrFailedUnmarshalInput)
	}
	return nil
}

// GetContent gets the content of the message for the chat history
func (r InputRequest) GetContent() string {
	return r.Input
}

func (r InputRequest) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Title = "Input Request"
}

// OutputResult is the default output for a chat turn.
type OutputResult struct {
	Content string `json:"content" yaml:"content" jsonschema:"title=Response Content,description=The content returned by agent or tool."`
}

func NewOutputResult(content string) *OutputResult {
	return &OutputResult{
		Content: content,
	}
}

// GetContent gets the content of the message for the chat history
func (r OutputResult) GetContent() string {
	return r.Content
}

func (r OutputResult) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Title = "Output Result"
}
