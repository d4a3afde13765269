package prompts

import (
	"testing"

	"github.com/effective-security/persona/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPromptValue_String(t *testing.T) {
	t.Parallel()

	template := NewChatPromptTemplate([]MessageFormatter{
		NewSystemMessagePromptTemplate("You are {{.name}}.", []string{"name"}),
		NewHumanMessagePromptTemplate("{{.question}}", []string{"question"}),
	})
	assert.ElementsMatch(t, []string{"name", "question"}, template.GetInputVariables())

	values := map[string]any{
		"name":     "a helpful assistant",
		"question": "What do you do?",
	}
	value, err := template.FormatPrompt(values)
	require.NoError(t, err)

	exp := `System: You are a helpful assistant.
Human: What do you do?
`
	assert.Equal(t, exp, value.String())

	res, err := template.Format(values)
	require.NoError(t, err)
	assert.Equal(t, exp, res)
}

func TestMessagePromptTemplates(t *testing.T) {
	t.Parallel()

	ai := NewAIMessagePromptTemplate("I said {{.what}}.", []string{"what"})
	msgs, err := ai.FormatMessages(map[string]any{"what": "hello"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.MessageFromTextParts(llms.RoleAI, "I said hello."), msgs[0])

	_, err = ai.FormatMessages(map[string]any{})
	require.Error(t, err)
}

func TestChatPromptTemplate_PartialVariables(t *testing.T) {
	t.Parallel()

	template := ChatPromptTemplate{
		Messages: []MessageFormatter{
			NewSystemMessagePromptTemplate("You are {{.name}}.", []string{"name"}),
		},
		PartialVariables: map[string]any{
			"name": func() string { return "an agent" },
		},
	}
	value, err := template.FormatPrompt(map[string]any{})
	require.NoError(t, err)
	require.Len(t, value.Messages(), 1)
	assert.Equal(t, llms.MessageFromTextParts(llms.RoleSystem, "You are an agent."), value.Messages()[0])

	template.PartialVariables = map[string]any{"name": 1}
	_, err = template.FormatPrompt(map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPartialVariableType)
}
