// Package recorder provides the tools the agent uses to capture visitor
// engagement: contact details left by an interested user and questions the
// agent could not answer. Each tool reports the event through a notification
// sender and returns an acknowledgement payload to the model.
package recorder

import (
	"github.com/effective-security/persona/pkg/llmutils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "recorder")

// Result is the acknowledgement payload returned by the recording tools.
type Result struct {
	Recorded string `json:"recorded" yaml:"recorded" jsonschema:"title=Recorded,description=The acknowledgement status of the recording."`
}

// Ack returns the nominal success payload.
func Ack() *Result {
	return &Result{Recorded: "ok"}
}

func (r *Result) GetContent() string {
	return llmutils.ToJSON(r)
}
