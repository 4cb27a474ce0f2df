package main

import (
	"fmt"
	"strings"
)

const (
	defaultTokenBudget = 3600

	contextPreamble = "Analyze the following list of transactions where d = Date, c = Category, a = Amount, and t = Type. For Type, d = Debit and c = Credit.\n"
	contextClosing  = "Generate suggestions on ways that this person can save money. Provide practical advice to help me save money and make better financial decisions. Reference specific transaction descriptions in your response."
)

// ContextStats describes how much of the export made it into a prompt
type ContextStats struct {
	Included int
	Dropped  int
	Tokens   int
}

func transactionLine(t Transaction) string {
	return fmt.Sprintf("- d: %s, c: %s, a: %d, t: %s\n", t.Date, t.Category, t.Amount, t.Type)
}

// BuildContext renders transactions into a prompt no larger than maxTokens.
func BuildContext(txns []Transaction, maxTokens int, counter TokenCounter) string {
	prompt, _ := BuildContextWithStats(txns, maxTokens, counter)
	return prompt
}

// BuildContextWithStats appends transaction lines in order until the next one
// would push the prompt past maxTokens. Later transactions are dropped, never
// skipped over, so the prompt always holds the most recent contiguous run.
func BuildContextWithStats(txns []Transaction, maxTokens int, counter TokenCounter) (string, ContextStats) {
	var b strings.Builder
	b.WriteString(contextPreamble)

	stats := ContextStats{Tokens: counter.Count(contextPreamble + contextClosing)}
	for _, t := range txns {
		line := transactionLine(t)
		n := counter.Count(b.String() + line + contextClosing)
		if n > maxTokens {
			break
		}
		b.WriteString(line)
		stats.Included++
		stats.Tokens = n
	}
	stats.Dropped = len(txns) - stats.Included

	b.WriteString(contextClosing)
	return b.String(), stats
}
