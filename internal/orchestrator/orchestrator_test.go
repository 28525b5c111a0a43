package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/applesforbots/internal/llm"
	"github.com/lox/applesforbots/internal/randutil"
)

var legal = []string{"Queen Elizabeth", "Hot Air Balloon", "Paris"}

// scriptedInvoker returns canned responses (or errors) in order, repeating
// the last entry once the script runs out.
type scriptedInvoker struct {
	mu        sync.Mutex
	script    []any // string content or error
	calls     int
	lastConvs []*llm.Conversation
}

func (s *scriptedInvoker) Invoke(ctx context.Context, model string, conv *llm.Conversation) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	s.lastConvs = append(s.lastConvs, conv)

	switch v := s.script[i].(type) {
	case error:
		return nil, v
	case string:
		return &llm.Response{Content: v, TranscriptID: "tr-" + strconv.Itoa(s.calls)}, nil
	default:
		panic("bad script entry")
	}
}

func newTestOrchestrator(invoker llm.Invoker, opts ...Option) *Orchestrator {
	return New(invoker, log.New(io.Discard), randutil.NewLocked(42), opts...)
}

func testConv() *llm.Conversation {
	conv := llm.NewConversation()
	conv.AddSystem("rules")
	conv.AddUser("pick a card")
	return conv
}

func TestValidResponseFirstAttempt(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{`{"reasoning": "iconic", "card": "paris"}`}}
	o := newTestOrchestrator(invoker)

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Card)
	assert.Equal(t, "iconic", res.Reasoning)
	assert.Equal(t, "tr-1", res.TranscriptID)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1, invoker.calls)
}

func TestRetryAppendsCorrectiveMessage(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{
		"I would pick Paris, obviously.",
		`{"reasoning": "second time lucky", "card": "Paris"}`,
	}}
	o := newTestOrchestrator(invoker)

	conv := testConv()
	res, err := o.RequestChoice(context.Background(), "m", conv, legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Card)
	assert.Equal(t, 2, invoker.calls)

	// The rejected reply and a corrective instruction were appended before
	// the second attempt.
	messages := conv.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "user", messages[3].Role)
	assert.Contains(t, messages[3].Content, "Queen Elizabeth, Hot Air Balloon, Paris")
	assert.Contains(t, messages[3].Content, `"card"`)
}

func TestIllegalChoiceRetried(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{
		`{"reasoning": "r", "card": "London"}`,
		`{"reasoning": "r", "card": "Hot Air Balloon"}`,
	}}
	o := newTestOrchestrator(invoker)

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, "Hot Air Balloon", res.Card)
}

func TestFallbackAfterExhaustion(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{"still not json"}}
	o := newTestOrchestrator(invoker)

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, 3, invoker.calls, "player role gets 3 attempts")
	assert.Contains(t, legal, res.Card)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Reasoning, "Random selection")
	assert.Contains(t, res.Reasoning, "3 attempts")
	assert.Contains(t, res.Reasoning, "still not json")
	// Provenance of the last failed attempt is preserved for audit.
	assert.Equal(t, "tr-3", res.TranscriptID)
}

func TestJudgeGetsLargerBudget(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{"nope"}}
	o := newTestOrchestrator(invoker)

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RoleJudge)
	require.NoError(t, err)
	assert.Equal(t, 5, invoker.calls)
	assert.True(t, res.Fallback)
}

func TestTransportErrorsConsumeAttempts(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{
		errors.New("connection reset"),
		`{"reasoning": "r", "card": "Paris"}`,
	}}
	o := newTestOrchestrator(invoker)

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Card)
	assert.Equal(t, 2, invoker.calls)
}

func TestAllTransportFailuresFallBack(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{errors.New("connection reset")}}
	o := newTestOrchestrator(invoker, WithAttempts(2, 2))

	res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, 2, invoker.calls)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Reasoning, "Random selection")
	assert.Empty(t, res.TranscriptID, "no attempt ever produced a transcript")
}

func TestFallbackCardIsUniformlyLegal(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{"garbage"}}
	o := newTestOrchestrator(invoker, WithAttempts(1, 1))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		res, err := o.RequestChoice(context.Background(), "m", testConv(), legal, RolePlayer)
		require.NoError(t, err)
		assert.Contains(t, legal, res.Card)
		seen[res.Card] = true
	}
	assert.Len(t, seen, len(legal), "every legal card should eventually be picked")
}

func TestContextCancellation(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{"garbage"}}
	o := newTestOrchestrator(invoker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RequestChoice(ctx, "m", testConv(), legal, RolePlayer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyLegalSetRejected(t *testing.T) {
	o := newTestOrchestrator(&scriptedInvoker{script: []any{"x"}})

	_, err := o.RequestChoice(context.Background(), "m", testConv(), nil, RolePlayer)
	assert.Error(t, err)
}

func TestConcurrentRequests(t *testing.T) {
	invoker := &scriptedInvoker{script: []any{"never valid"}}
	o := newTestOrchestrator(invoker, WithAttempts(2, 2))

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := o.RequestChoice(context.Background(), fmt.Sprintf("m%d", i), testConv(), legal, RolePlayer)
			require.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.Fallback)
		assert.True(t, strings.HasPrefix(res.Reasoning, FallbackMarker))
	}
}
