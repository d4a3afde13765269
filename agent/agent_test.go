package agent_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/agent"
	"github.com/effective-security/persona/mocks/mockagent"
	"github.com/effective-security/persona/mocks/mockllms"
	"github.com/effective-security/persona/mocks/mocktools"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/persona/pkg/prompts"
	"github.com/effective-security/persona/pkg/schema"
	"github.com/effective-security/persona/tools"
	"github.com/effective-security/persona/tools/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content},
		},
	}
}

func toolCallResponse(content string, calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content, ToolCalls: calls},
		},
	}
}

func Test_HandleTurn_TextAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, messages, 2)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Equal(t, "You are a helpful AI assistant.", messages[0].Parts[0].(llms.TextContent).Text)
			assert.Equal(t, llms.RoleHuman, messages[1].Role)
			assert.Equal(t, "Hi", messages[1].Parts[0].(llms.TextContent).Text)
			return textResponse("Hello! How can I help?"), nil
		}).Times(1)

	ag := agent.New(mockLLM, systemPrompt)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	assert.Equal(t, "Hello! How can I help?", res.Answer)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 0, res.ToolCalls)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, llms.RoleHuman, res.Messages[0].Role)
	assert.Equal(t, llms.RoleAI, res.Messages[1].Role)
}

func Test_HandleTurn_ToolRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			if len(messages) == 2 {
				return toolCallResponse("",
					llms.ToolCall{
						ID:   "call_1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      recorder.UnknownQuestionToolName,
							Arguments: `{"question":"What is your favorite color?"}`,
						},
					}), nil
			}

			// the second call carries the tool request and its response
			require.Len(t, messages, 4)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Equal(t, llms.RoleAI, messages[2].Role)
			require.Len(t, messages[2].GetToolCalls(), 1)
			assert.Equal(t, llms.RoleTool, messages[3].Role)
			toolResp := messages[3].Parts[0].(llms.ToolCallResponse)
			assert.Equal(t, "call_1", toolResp.ToolCallID)
			assert.Equal(t, recorder.UnknownQuestionToolName, toolResp.Name)
			assert.Equal(t, `{"recorded":"ok"}`, toolResp.Content)
			return textResponse("I don't know, but I noted the question."), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "What is your favorite color?", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	assert.Equal(t, "I don't know, but I noted the question.", res.Answer)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, 1, res.ToolCalls)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, llms.RoleHuman, res.Messages[0].Role)
	assert.Equal(t, llms.RoleAI, res.Messages[1].Role)
	assert.Equal(t, llms.RoleTool, res.Messages[2].Role)
	assert.Equal(t, llms.RoleAI, res.Messages[3].Role)
}

func Test_HandleTurn_RoundCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	// the model never stops asking for tools
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			return toolCallResponse("Working on it.",
				llms.ToolCall{
					ID:   "call_1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      recorder.UnknownQuestionToolName,
						Arguments: `{"question":"What else?"}`,
					},
				}), nil
		}).Times(10)

	mockCallback := mockagent.NewMockCallback(ctrl)
	mockCallback.EXPECT().OnAgentStart(gomock.Any(), gomock.Any(), "keep going").Times(1)
	mockCallback.EXPECT().OnAgentLLMCallStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(10)
	mockCallback.EXPECT().OnAgentLLMCallEnd(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(10)
	mockCallback.EXPECT().OnToolStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(9)
	mockCallback.EXPECT().OnToolEnd(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(9)
	mockCallback.EXPECT().OnAgentAborted(gomock.Any(), gomock.Any(), "keep going", 10).Times(1)
	mockCallback.EXPECT().OnAgentEnd(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	ag := agent.New(mockLLM, systemPrompt, agent.WithCallback(mockCallback)).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "keep going", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateAborted, res.State)
	assert.Equal(t, "Working on it.", res.Answer)
	assert.Equal(t, 10, res.Rounds)
	assert.Equal(t, 9, res.ToolCalls)

	// human + 10 tool call requests + 9 tool responses
	require.Len(t, res.Messages, 20)
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, llms.RoleAI, last.Role)
	assert.Len(t, last.GetToolCalls(), 1)
}

func Test_HandleTurn_CustomRoundCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			return toolCallResponse("",
				llms.ToolCall{
					ID:   "call_1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      recorder.UnknownQuestionToolName,
						Arguments: `{"question":"What else?"}`,
					},
				}), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "keep going", nil, agent.WithMaxRounds(2))
	require.NoError(t, err)
	assert.Equal(t, agent.StateAborted, res.State)
	assert.Empty(t, res.Answer)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, 1, res.ToolCalls)
}

func Test_HandleTurn_ModelError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("rate limited")).Times(1)

	mockCallback := mockagent.NewMockCallback(ctrl)
	mockCallback.EXPECT().OnAgentStart(gomock.Any(), gomock.Any(), "Hi").Times(1)
	mockCallback.EXPECT().OnAgentLLMCallStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	mockCallback.EXPECT().OnAgentError(gomock.Any(), gomock.Any(), "Hi", gomock.Any(), gomock.Any()).Times(1)

	ag := agent.New(mockLLM, systemPrompt, agent.WithCallback(mockCallback))

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate content from LLM")
	assert.Contains(t, err.Error(), "rate limited")
}

func Test_HandleTurn_EmptyResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil).Times(1)

	ag := agent.New(mockLLM, systemPrompt)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM returned empty response")
}

func Test_HandleTurn_ToolNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			if len(messages) == 2 {
				return toolCallResponse("",
					llms.ToolCall{
						ID:   "call_1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      "lookup_calendar",
							Arguments: `{}`,
						},
					}), nil
			}

			require.Len(t, messages, 4)
			toolResp := messages[3].Parts[0].(llms.ToolCallResponse)
			assert.Equal(t, `{"error":"Tool lookup_calendar not found"}`, toolResp.Content)
			return textResponse("Sorry, I cannot check the calendar."), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "Am I free tomorrow?", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	assert.Equal(t, "Sorry, I cannot check the calendar.", res.Answer)
	assert.Equal(t, 1, res.ToolCalls)
}

func Test_HandleTurn_ToolFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			if len(messages) == 2 {
				// the question field required by the tool is missing
				return toolCallResponse("",
					llms.ToolCall{
						ID:   "call_1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      recorder.UnknownQuestionToolName,
							Arguments: `{}`,
						},
					}), nil
			}

			require.Len(t, messages, 4)
			toolResp := messages[3].Parts[0].(llms.ToolCallResponse)
			assert.True(t, strings.HasPrefix(toolResp.Content, `{"error":`))
			assert.Contains(t, toolResp.Content, "'required' tag")
			return textResponse("Let me try that differently."), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	assert.Equal(t, "Let me try that differently.", res.Answer)
}

func Test_HandleTurn_FunctionCallingUnsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("proxy").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderAzureAD).AnyTimes()

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support function calling")
}

func Test_HandleTurn_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	history := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "My name is Ana."),
		llms.MessageFromTextParts(llms.RoleAI, "Nice to meet you, Ana!"),
	}

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, messages, 4)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Equal(t, "My name is Ana.", messages[1].Parts[0].(llms.TextContent).Text)
			assert.Equal(t, "Nice to meet you, Ana!", messages[2].Parts[0].(llms.TextContent).Text)
			assert.Equal(t, "What is my name?", messages[3].Parts[0].(llms.TextContent).Text)
			return textResponse("Your name is Ana."), nil
		}).Times(1)

	ag := agent.New(mockLLM, systemPrompt)

	res, err := ag.HandleTurn(context.Background(), "What is my name?", history)
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ana.", res.Answer)
	require.Len(t, res.Messages, 4)
}

func Test_HandleTurn_EmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	history := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "Tell me more."),
	}

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// no user message is appended for empty input
			require.Len(t, messages, 2)
			return textResponse("Continuing."), nil
		}).Times(1)

	ag := agent.New(mockLLM, systemPrompt)

	res, err := ag.HandleTurn(context.Background(), "", history)
	require.NoError(t, err)
	assert.Equal(t, "Continuing.", res.Answer)
	require.Len(t, res.Messages, 2)
}

func Test_HandleTurn_MultipleChoices(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			Choices: []*llms.ContentChoice{
				{Content: "First."},
				{Content: "Second."},
			},
		}, nil).Times(1)

	ag := agent.New(mockLLM, systemPrompt)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "First.\n\nSecond.", res.Answer)
}

func Test_HandleTurn_ToolCallIDBackfill(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			if len(messages) == 2 {
				// no ID and no type on the request
				return toolCallResponse("",
					llms.ToolCall{
						FunctionCall: &llms.FunctionCall{
							Name:      recorder.UnknownQuestionToolName,
							Arguments: `{"question":"Any plans?"}`,
						},
					}), nil
			}

			require.Len(t, messages, 4)
			requests := messages[2].GetToolCalls()
			require.Len(t, requests, 1)
			assert.Equal(t, "record_unknown_question_0", requests[0].ID)
			assert.Equal(t, "function", requests[0].Type)
			toolResp := messages[3].Parts[0].(llms.ToolCallResponse)
			assert.Equal(t, "record_unknown_question_0", toolResp.ToolCallID)
			return textResponse("Done."), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(questionTool)

	res, err := ag.HandleTurn(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
}

func Test_HandleTurn_ToolResponseOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	slowTool := mocktools.NewMockITool(ctrl)
	slowTool.EXPECT().Name().Return("slow_lookup").AnyTimes()
	slowTool.EXPECT().Description().Return("slow lookup for testing").AnyTimes()
	slowTool.EXPECT().Parameters().Return(schema.MustFromAny(map[string]any{"type": "object"})).AnyTimes()
	slowTool.EXPECT().Call(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return `{"answer":"slow"}`, nil
		}).Times(1)

	fastTool := mocktools.NewMockITool(ctrl)
	fastTool.EXPECT().Name().Return("fast_lookup").AnyTimes()
	fastTool.EXPECT().Description().Return("fast lookup for testing").AnyTimes()
	fastTool.EXPECT().Parameters().Return(schema.MustFromAny(map[string]any{"type": "object"})).AnyTimes()
	fastTool.EXPECT().Call(gomock.Any(), gomock.Any()).Return(`{"answer":"fast"}`, nil).Times(1)

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("gpt-5-mini").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			if len(messages) == 2 {
				return toolCallResponse("",
					llms.ToolCall{ID: "call_slow", Type: "function", FunctionCall: &llms.FunctionCall{Name: "slow_lookup", Arguments: `{}`}},
					llms.ToolCall{ID: "call_fast", Type: "function", FunctionCall: &llms.FunctionCall{Name: "fast_lookup", Arguments: `{}`}},
				), nil
			}
			return textResponse("Combined results."), nil
		}).Times(2)

	ag := agent.New(mockLLM, systemPrompt).WithTools(slowTool, fastTool)

	res, err := ag.HandleTurn(context.Background(), "look things up", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ToolCalls)

	// responses come back in request order even when the fast tool finishes first
	require.Len(t, res.Messages, 5)
	first := res.Messages[2].Parts[0].(llms.ToolCallResponse)
	second := res.Messages[3].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_slow", first.ToolCallID)
	assert.Equal(t, `{"answer":"slow"}`, first.Content)
	assert.Equal(t, "call_fast", second.ToolCallID)
	assert.Equal(t, `{"answer":"fast"}`, second.Content)
}

func Test_HandleTurn_PromptError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := mockllms.NewMockModel(ctrl)
	systemPrompt := prompts.NewPromptTemplate("You are acting as {{.name}}.", []string{"name"})

	ag := agent.New(mockLLM, systemPrompt)

	_, err := ag.HandleTurn(context.Background(), "Hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to format system prompt")
}

func Test_GetSystemPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := mockllms.NewMockModel(ctrl)
	systemPrompt := prompts.NewPromptTemplate("You are acting as {{.name}}.\n\n", []string{"name"})

	ag := agent.New(mockLLM, systemPrompt, agent.WithPromptInput(map[string]any{"name": "Ava Chen"}))

	prompt, err := ag.GetSystemPrompt(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "You are acting as Ava Chen.", prompt)

	// per turn inputs override the configured ones
	prompt, err = ag.GetSystemPrompt(context.Background(), "Hi", map[string]any{"name": "Noor"})
	require.NoError(t, err)
	assert.Equal(t, "You are acting as Noor.", prompt)

	ag.WithPromptInputProvider(func(_ context.Context, _ string) (map[string]any, error) {
		return map[string]any{"name": "Iris"}, nil
	})
	prompt, err = ag.GetSystemPrompt(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "You are acting as Iris.", prompt)

	ag.WithPromptInputProvider(func(_ context.Context, _ string) (map[string]any, error) {
		return nil, errors.New("lookup failed")
	})
	_, err = ag.GetSystemPrompt(context.Background(), "Hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get prompt inputs")
}

func Test_Agent_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := mockllms.NewMockModel(ctrl)
	systemPrompt := prompts.NewPromptTemplate("You are a helpful AI assistant.", []string{})

	ag := agent.New(mockLLM, systemPrompt)
	assert.Equal(t, "Persona Agent", ag.Name())
	assert.NotEmpty(t, ag.Description())
	assert.Empty(t, ag.GetTools())
	assert.Empty(t, ag.GetPromptInputVariables())

	ag.WithName("Ava").WithDescription("Answers as Ava.")
	assert.Equal(t, "Ava", ag.Name())
	assert.Equal(t, "Answers as Ava.", ag.Description())

	questionTool, err := recorder.NewUnknownQuestion(nil)
	require.NoError(t, err)

	// duplicate registrations are skipped
	ag.WithTools(questionTool, questionTool)
	assert.Len(t, ag.GetTools(), 1)

	detailsTool, err := recorder.NewUserDetails(nil)
	require.NoError(t, err)

	reg, err := tools.NewRegistry(questionTool, detailsTool)
	require.NoError(t, err)
	ag.WithRegistry(reg)
	assert.Len(t, ag.GetTools(), 2)

	ag.WithRegistry(nil)
	assert.Len(t, ag.GetTools(), 2)
}

func Test_Config_GetCallOptions(t *testing.T) {
	cfg := agent.NewConfig(
		agent.WithModel("gpt-5-mini"),
		agent.WithMaxTokens(512),
		agent.WithTemperature(0.2),
		agent.WithStopWords([]string{"STOP"}),
		agent.WithTopP(0.9),
		agent.WithSeed(42),
		agent.WithFrequencyPenalty(0.5),
		agent.WithPresencePenalty(0.4),
		agent.WithToolChoice("auto"),
		agent.WithMaxRounds(3),
	)
	assert.Equal(t, 3, cfg.MaxRounds)

	var opts llms.CallOptions
	for _, opt := range cfg.GetCallOptions() {
		opt(&opts)
	}
	assert.Equal(t, "gpt-5-mini", opts.Model)
	assert.Equal(t, 512, opts.MaxTokens)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, []string{"STOP"}, opts.StopWords)
	assert.Equal(t, 0.9, opts.TopP)
	assert.Equal(t, 42, opts.Seed)
	assert.Equal(t, 0.5, opts.FrequencyPenalty)
	assert.Equal(t, 0.4, opts.PresencePenalty)
	assert.Equal(t, "auto", opts.ToolChoice)
	assert.Empty(t, opts.Tools)

	// unset options produce no call options
	empty := agent.NewConfig()
	assert.Empty(t, empty.GetCallOptions())

	// Apply does not mutate the original
	updated := empty.Apply(agent.WithModel("sonar"))
	assert.Empty(t, empty.GetCallOptions())
	assert.Len(t, updated.GetCallOptions(), 1)

	withTool := agent.NewConfig(agent.WithTool(llms.Tool{
		Type:     "function",
		Function: &llms.FunctionDefinition{Name: "echo"},
	}))
	var toolOpts llms.CallOptions
	for _, opt := range withTool.GetCallOptions() {
		opt(&toolOpts)
	}
	require.Len(t, toolOpts.Tools, 1)
	assert.Equal(t, "echo", toolOpts.Tools[0].Function.Name)
}

func Test_State_String(t *testing.T) {
	assert.Equal(t, "awaiting_model", agent.StateAwaitingModel.String())
	assert.Equal(t, "awaiting_tools", agent.StateAwaitingTools.String())
	assert.Equal(t, "done", agent.StateDone.String())
	assert.Equal(t, "aborted", agent.StateAborted.String())
	assert.Equal(t, "unknown", agent.State(42).String())
}
