package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Advisor turns a transaction export into savings suggestions and keeps the
// follow-up conversation going.
type Advisor struct {
	completer Completer
	counter   TokenCounter
	budget    int
	serverKey string
	logger    *zap.Logger
}

// NewAdvisor returns an Advisor. A non-empty serverKey is used for every
// request in place of the key a user supplies, and is never put in a session.
func NewAdvisor(completer Completer, counter TokenCounter, budget int, serverKey string, logger *zap.Logger) *Advisor {
	if budget <= 0 {
		budget = defaultTokenBudget
	}
	return &Advisor{
		completer: completer,
		counter:   counter,
		budget:    budget,
		serverKey: serverKey,
		logger:    logger,
	}
}

func (a *Advisor) keyFor(sess *Session) string {
	if a.serverKey != "" {
		return a.serverKey
	}
	return sess.APIKey
}

// Prompt builds the first user message for txns.
func (a *Advisor) Prompt(txns []Transaction) (string, ContextStats) {
	return BuildContextWithStats(txns, a.budget, a.counter)
}

// Start opens a new session and asks for the initial suggestions. userKey is
// only kept when there is no server key.
func (a *Advisor) Start(ctx context.Context, userKey string, txns []Transaction) (*Session, error) {
	prompt, stats := a.Prompt(txns)
	a.logger.Info("context built",
		zap.Int("rows", len(txns)),
		zap.Int("included", stats.Included),
		zap.Int("dropped", stats.Dropped),
		zap.Int("tokens", stats.Tokens))

	sess := &Session{
		ID: uuid.NewString(),
		Conversation: []Message{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Commentary:  []Commentary{},
		Suggestions: []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if a.serverKey == "" {
		sess.APIKey = userKey
	}

	reply, err := a.completer.Complete(ctx, a.keyFor(sess), sess.Conversation)
	if err != nil {
		return nil, fmt.Errorf("generating suggestions: %w", err)
	}
	sess.Conversation = append(sess.Conversation, Message{Role: openai.ChatMessageRoleAssistant, Content: reply})
	sess.Suggestions = SplitSuggestions(reply)

	a.logger.Info("session started", zap.String("session", sess.ID), zap.Int("suggestions", len(sess.Suggestions)))
	return sess, nil
}

// Ask appends a follow-up question and its answer to the session. A blank
// question leaves the session untouched.
func (a *Advisor) Ask(ctx context.Context, sess *Session, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	msgs := append(sess.Conversation[:len(sess.Conversation):len(sess.Conversation)],
		Message{Role: openai.ChatMessageRoleUser, Content: question})

	reply, err := a.completer.Complete(ctx, a.keyFor(sess), msgs)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	sess.Conversation = append(msgs, Message{Role: openai.ChatMessageRoleAssistant, Content: reply})
	sess.Commentary = append(sess.Commentary,
		Commentary{Type: commentaryQuestion, Text: question},
		Commentary{Type: commentaryAnswer, Text: StripDelimiters(reply)},
	)

	a.logger.Info("question answered", zap.String("session", sess.ID), zap.Int("turns", len(sess.Conversation)))
	return nil
}
