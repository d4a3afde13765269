package prompts

import (
	"github.com/effective-security/persona/pkg/llms"
)

// StringPromptValue is a prompt value that is a string.
type StringPromptValue string

var _ llms.PromptValue = StringPromptValue("")

func (v StringPromptValue) String() string {
	return string(v)
}

// Messages returns a single human message with the string as content.
func (v StringPromptValue) Messages() []llms.Message {
	return []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, string(v)),
	}
}
