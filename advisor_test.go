package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdvisor_Start(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"###Cook at home ###Cancel unused subscriptions"}}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())

	txns, err := ParseTransactions(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	sess, err := a.Start(context.Background(), "sk-test", txns)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "sk-test", sess.APIKey)
	assert.Equal(t, []string{"Cook at home", "Cancel unused subscriptions"}, sess.Suggestions)
	assert.Empty(t, sess.Commentary)

	require.Len(t, sess.Conversation, 3)
	assert.Equal(t, "system", sess.Conversation[0].Role)
	assert.Equal(t, "user", sess.Conversation[1].Role)
	assert.Contains(t, sess.Conversation[1].Content, "- d: 03/02/23, c: Salary, a: 3200, t: c\n")
	assert.Equal(t, "assistant", sess.Conversation[2].Role)

	require.Len(t, fc.calls, 1)
	assert.Len(t, fc.calls[0], 2)
	assert.Equal(t, []string{"sk-test"}, fc.keys)
}

func TestAdvisor_StartUsesBudget(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	base := wordCounter{}.Count(contextPreamble + contextClosing)
	a := NewAdvisor(fc, wordCounter{}, base, "", zap.NewNop())

	sess, err := a.Start(context.Background(), "k", makeTransactions(10))
	require.NoError(t, err)
	assert.Equal(t, contextPreamble+contextClosing, sess.Conversation[1].Content)
}

func TestAdvisor_StartError(t *testing.T) {
	boom := errors.New("rate limited")
	a := NewAdvisor(&fakeCompleter{err: boom}, wordCounter{}, 0, "", zap.NewNop())

	_, err := a.Start(context.Background(), "k", makeTransactions(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAdvisor_Ask(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"###Cook at home", "###Buy in bulk ###Plan meals", "Yes."}}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())
	ctx := context.Background()

	sess, err := a.Start(ctx, "k", makeTransactions(3))
	require.NoError(t, err)

	require.NoError(t, a.Ask(ctx, sess, "  How do I spend less on food?  "))
	require.NoError(t, a.Ask(ctx, sess, "Is that realistic?"))

	assert.Equal(t, []Commentary{
		{Type: commentaryQuestion, Text: "How do I spend less on food?"},
		{Type: commentaryAnswer, Text: "Buy in bulk Plan meals"},
		{Type: commentaryQuestion, Text: "Is that realistic?"},
		{Type: commentaryAnswer, Text: "Yes."},
	}, sess.Commentary)

	require.Len(t, sess.Conversation, 7)
	assert.Equal(t, "user", sess.Conversation[3].Role)
	assert.Equal(t, "How do I spend less on food?", sess.Conversation[3].Content)
	assert.Equal(t, "assistant", sess.Conversation[6].Role)

	// each request carries the whole transcript so far
	require.Len(t, fc.calls, 3)
	assert.Len(t, fc.calls[1], 4)
	assert.Len(t, fc.calls[2], 6)
}

func TestAdvisor_AskBlank(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())
	ctx := context.Background()

	sess, err := a.Start(ctx, "k", nil)
	require.NoError(t, err)

	require.NoError(t, a.Ask(ctx, sess, "   "))
	assert.Len(t, sess.Conversation, 3)
	assert.Empty(t, sess.Commentary)
	assert.Len(t, fc.calls, 1)
}

func TestAdvisor_AskErrorLeavesSession(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())
	ctx := context.Background()

	sess, err := a.Start(ctx, "k", nil)
	require.NoError(t, err)

	fc.err = errors.New("network down")
	require.Error(t, a.Ask(ctx, sess, "why?"))
	assert.Len(t, sess.Conversation, 3)
	assert.Empty(t, sess.Commentary)
}

func TestAdvisor_ServerKeyNotStored(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	a := NewAdvisor(fc, wordCounter{}, 0, "env-key", zap.NewNop())
	ctx := context.Background()

	sess, err := a.Start(ctx, "form-key", makeTransactions(2))
	require.NoError(t, err)
	assert.Empty(t, sess.APIKey)

	require.NoError(t, a.Ask(ctx, sess, "why?"))
	assert.Equal(t, []string{"env-key", "env-key"}, fc.keys)
}

func TestAdvisor_AskUsesCurrentServerKey(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"ok"}}
	ctx := context.Background()

	sess, err := NewAdvisor(fc, wordCounter{}, 0, "old-key", zap.NewNop()).Start(ctx, "", nil)
	require.NoError(t, err)

	// a restart with a rotated key keeps serving existing sessions
	rotated := NewAdvisor(fc, wordCounter{}, 0, "new-key", zap.NewNop())
	require.NoError(t, rotated.Ask(ctx, sess, "why?"))
	assert.Equal(t, []string{"old-key", "new-key"}, fc.keys)
}
