package callbacks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct{ name string }

func (a *fakeAgent) Name() string        { return a.name }
func (a *fakeAgent) Description() string { return "desc" }

type fakeTool struct{ name string }

func (t *fakeTool) Name() string                                           { return t.name }
func (t *fakeTool) Description() string                                    { return "desc" }
func (t *fakeTool) Parameters() *jsonschema.Schema                         { return nil }
func (t *fakeTool) Call(ctx context.Context, input string) (string, error) { return "", nil }

type fakeModel struct{ name string }

func (m *fakeModel) GetName() string                    { return m.name }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

func newTestChatContext() (context.Context, chatmodel.ChatContext) {
	chatCtx := chatmodel.NewChatContext("chatid", nil)
	ctx := chatmodel.WithChatContext(context.Background(), chatCtx)
	return ctx, chatCtx
}

func TestScratchpad_StartRun_EndRun(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeVerbose)

	// no chat context, nothing is tracked
	sp.StartRun(context.Background())
	assert.Empty(t, sp.runs)

	ctx, cctx := newTestChatContext()
	sp.StartRun(ctx)
	r := sp.runs[cctx.GetChatID()]
	require.NotNil(t, r)
	// Populate stats for EndRun
	r.stats.AgentCalls = 2
	r.stats.AgentCallsFailed = 1
	r.stats.AgentCallsAborted = 1
	r.stats.ToolsCalls = 3
	r.stats.ToolsCallsFailed = 2
	r.stats.ToolNotFound = 1
	r.stats.AgentLLMCalls = 1
	r.stats.TotalMessages = 4
	r.stats.LLMBytesOut = 10
	r.stats.LLMBytesIn = 11

	// EndRun should print stats and cleanup
	stats, buf := sp.EndRun(ctx)
	require.NotNil(t, stats)
	require.Contains(t, string(buf), "Run Started")
	require.Contains(t, string(buf), "Run Ended")
	require.Contains(t, string(buf), "Agent calls: 2, Failed: 1, Aborted: 1")
	require.Contains(t, string(buf), "Tool calls: 3, Failed: 2, Not Found: 1")
	// Should no longer be present in map
	_, ok := sp.runs[cctx.GetChatID()]
	assert.False(t, ok)

	// EndRun with no run (run already deleted)
	s2, _ := sp.EndRun(ctx)
	assert.Nil(t, s2)
}

func TestScratchpad_getRun_nil(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeDefault)
	// No chat context at all
	assert.Nil(t, sp.getRun(context.Background()))
	// Chat context not in runs
	ctx, _ := newTestChatContext()
	assert.Nil(t, sp.getRun(ctx))
}

func TestScratchpad_OnCallbacks(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeVerbose)
	ctx, _ := newTestChatContext()
	sp.StartRun(ctx)
	ag := &fakeAgent{name: "A1"}
	tool := &fakeTool{name: "T1"}
	llm := &fakeModel{name: "M1"}
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content: "Answer 1",
			GenerationInfo: map[string]any{
				"InputTokens":  7,
				"OutputTokens": 3,
				"TotalTokens":  10,
			},
		}}}
	payload := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "foo"),
	}
	// Test various callbacks
	sp.OnAgentStart(ctx, ag, "input")
	sp.OnAgentLLMCallStart(ctx, ag, llm, payload)
	sp.OnAgentLLMCallEnd(ctx, ag, llm, resp)
	sp.OnAgentEnd(ctx, ag, "input", resp, payload)
	sp.OnAgentError(ctx, ag, "input", errors.New("fail"), payload)
	sp.OnAgentAborted(ctx, ag, "input", 10)
	sp.OnToolStart(ctx, tool, "A1", "tinput")
	sp.OnToolEnd(ctx, tool, "A1", "tinput", "toutput")
	sp.OnToolError(ctx, tool, "A1", "tinput", errors.New("terr"))
	sp.OnToolNotFound(ctx, "A1", "T2")
	// EndRun shows these calls
	stats, output := sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, uint32(1), stats.AgentCalls)
	assert.Equal(t, uint32(1), stats.AgentCallsSucceeded)
	assert.Equal(t, uint32(1), stats.AgentCallsFailed)
	assert.Equal(t, uint32(1), stats.AgentCallsAborted)
	assert.Equal(t, uint32(1), stats.AgentLLMCalls)
	assert.Equal(t, uint32(1), stats.TotalMessages)
	assert.Equal(t, uint32(1), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)
	assert.Equal(t, uint32(1), stats.ToolsCallsFailed)
	assert.Equal(t, uint32(1), stats.ToolNotFound)
	assert.Equal(t, uint64(7), stats.LLMInputTokens)
	assert.Equal(t, uint64(3), stats.LLMOutputTokens)
	assert.Equal(t, uint64(10), stats.LLMTotalTokens)
	outStr := string(output)
	assert.Contains(t, outStr, "A1 *** Agent Start ***")
	assert.Contains(t, outStr, "A1 *** Agent End ***")
	assert.Contains(t, outStr, "A1 T1 *** Tool Start ***")
	assert.Contains(t, outStr, "A1 T1 *** Tool End ***")
	assert.Contains(t, outStr, "*** LLM Call ***")
	assert.Contains(t, outStr, "M1 model, 1 messages")
	assert.Contains(t, outStr, "*** LLM Call End ***")
	assert.Contains(t, outStr, "*** Error ***")
	assert.Contains(t, outStr, "*** Aborted *** after 10 rounds")
	assert.Contains(t, outStr, "*** Tool Not Found *** T2")
	// test callback methods again: should still work if no run
	sp.OnAgentStart(ctx, ag, "input")
	sp.OnAgentEnd(ctx, ag, "input", resp, nil)
	sp.OnAgentLLMCallStart(ctx, ag, llm, nil)
	sp.OnAgentLLMCallEnd(ctx, ag, llm, resp)
	sp.OnAgentError(ctx, ag, "input", errors.New("fail2"), nil)
	sp.OnAgentAborted(ctx, ag, "input", 2)
	sp.OnToolStart(ctx, tool, "A1", "tinput")
	sp.OnToolEnd(ctx, tool, "A1", "tinput", "toutput")
	sp.OnToolError(ctx, tool, "A1", "tinput", errors.New("terr2"))
	sp.OnToolNotFound(ctx, "A1", "T3")
}

func Test_run_print_format(t *testing.T) {
	_, chatCtx := newTestChatContext()
	r := &run{chatCtx: chatCtx}
	oldTimeFn := TimeNowFn
	TimeNowFn = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { TimeNowFn = oldTimeFn }()

	r.print("hello", "again")
	lines := strings.Split(r.w.String(), "\n")
	require.NotEmpty(t, lines[0])
	// Format: [timestamp chatID.runID] hello again
	assert.Contains(t, lines[0], "2024-01-01 12:00:00 "+chatCtx.GetChatID()+"."+chatCtx.RunID()+" hello again")
}
