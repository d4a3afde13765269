package prompts

import (
	"github.com/effective-security/persona/pkg/llms"
)

// SystemMessagePromptTemplate is a message formatter that returns a system
// message.
type SystemMessagePromptTemplate struct {
	Prompt PromptTemplate
}

var _ MessageFormatter = SystemMessagePromptTemplate{}

// NewSystemMessagePromptTemplate creates a new system message prompt template.
func NewSystemMessagePromptTemplate(template string, inputVariables []string) SystemMessagePromptTemplate {
	return SystemMessagePromptTemplate{
		Prompt: NewPromptTemplate(template, inputVariables),
	}
}

// FormatMessages formats the message with the values given.
func (p SystemMessagePromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	text, err := p.Prompt.Format(values)
	if err != nil {
		return nil, err
	}
	return []llms.Message{llms.MessageFromTextParts(llms.RoleSystem, text)}, nil
}

// GetInputVariables returns the input variables the prompt expects.
func (p SystemMessagePromptTemplate) GetInputVariables() []string {
	return p.Prompt.InputVariables
}

// AIMessagePromptTemplate is a message formatter that returns an AI message.
type AIMessagePromptTemplate struct {
	Prompt PromptTemplate
}

var _ MessageFormatter = AIMessagePromptTemplate{}

// NewAIMessagePromptTemplate creates a new AI message prompt template.
func NewAIMessagePromptTemplate(template string, inputVariables []string) AIMessagePromptTemplate {
	return AIMessagePromptTemplate{
		Prompt: NewPromptTemplate(template, inputVariables),
	}
}

// FormatMessages formats the message with the values given.
func (p AIMessagePromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	text, err := p.Prompt.Format(values)
	if err != nil {
		return nil, err
	}
	return []llms.Message{llms.MessageFromTextParts(llms.RoleAI, text)}, nil
}

// GetInputVariables returns the input variables the prompt expects.
func (p AIMessagePromptTemplate) GetInputVariables() []string {
	return p.Prompt.InputVariables
}

// HumanMessagePromptTemplate is a message formatter that returns a human
// message.
type HumanMessagePromptTemplate struct {
	Prompt PromptTemplate
}

var _ MessageFormatter = HumanMessagePromptTemplate{}

// NewHumanMessagePromptTemplate creates a new human message prompt template.
func NewHumanMessagePromptTemplate(template string, inputVariables []string) HumanMessagePromptTemplate {
	return HumanMessagePromptTemplate{
		Prompt: NewPromptTemplate(template, inputVariables),
	}
}

// FormatMessages formats the message with the values given.
func (p HumanMessagePromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	text, err := p.Prompt.Format(values)
	if err != nil {
		return nil, err
	}
	return []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, text)}, nil
}

// GetInputVariables returns the input variables the prompt expects.
func (p HumanMessagePromptTemplate) GetInputVariables() []string {
	return p.Prompt.InputVariables
}

// ChatPromptTemplate is a prompt template for chat messages.
type ChatPromptTemplate struct {
	// Messages is the list of the messages to be formatted.
	Messages []MessageFormatter

	// PartialVariables represents a map of variable names to values or
	// functions that return values. If the value is a function, it will be
	// called when the prompt template is rendered.
	PartialVariables map[string]any
}

var _ FormatPrompter = ChatPromptTemplate{}

// NewChatPromptTemplate creates a new chat prompt template from a list of
// message formatters.
func NewChatPromptTemplate(messages []MessageFormatter) ChatPromptTemplate {
	return ChatPromptTemplate{
		Messages: messages,
	}
}

// FormatPrompt formats the messages into a chat prompt value.
func (p ChatPromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	resolvedValues, err := resolvePartialValues(p.PartialVariables, values)
	if err != nil {
		return nil, err
	}

	formattedMessages := make([]llms.Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		curFormattedMessages, err := m.FormatMessages(resolvedValues)
		if err != nil {
			return nil, err
		}
		formattedMessages = append(formattedMessages, curFormattedMessages...)
	}

	return ChatPromptValue(formattedMessages), nil
}

// Format formats the messages into a string with all messages separated by
// newlines.
func (p ChatPromptTemplate) Format(values map[string]any) (string, error) {
	promptValue, err := p.FormatPrompt(values)
	if err != nil {
		return "", err
	}
	return promptValue.String(), nil
}

// GetInputVariables returns the input variables the prompt expects.
func (p ChatPromptTemplate) GetInputVariables() []string {
	inputVariablesMap := make(map[string]bool, 0)
	for _, msg := range p.Messages {
		for _, variable := range msg.GetInputVariables() {
			inputVariablesMap[variable] = true
		}
	}
	inputVariables := make([]string, 0, len(inputVariablesMap))
	for variable := range inputVariablesMap {
		inputVariables = append(inputVariables, variable)
	}

	return inputVariables
}
