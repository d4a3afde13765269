package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/effective-security/persona/agent"
	"github.com/effective-security/persona/chat"
	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/mocks/mockllms"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/pkg/prompts"
	"github.com/effective-security/persona/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRepl(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("test-model").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			Choices: []*llms.ContentChoice{
				{Content: "Hello! How can I help?"},
			},
		}, nil).
		Times(1)

	systemPrompt := prompts.NewPromptTemplate("You are a test persona.", []string{})
	svc := chat.NewService(agent.New(mockLLM, systemPrompt)).
		WithMessageStore(store.NewMemoryStore())

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("", nil))

	in := strings.NewReader("hi\n\n/reset\n/exit\n")
	var out bytes.Buffer
	err := repl(ctx, svc, in, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Hello! How can I help?")
	assert.Contains(t, out.String(), "Session cleared.")
}

func TestRepl_EOF(t *testing.T) {
	svc := chat.NewService(nil)

	var out bytes.Buffer
	err := repl(context.Background(), svc, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, "> \n", out.String())
}
