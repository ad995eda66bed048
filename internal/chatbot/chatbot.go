// Package chatbot answers finance questions with keyword rules. It stands in
// for a real NLP backend, unmatched messages are echoed back.
package chatbot

import (
	"fmt"
	"strings"
)

// Reply picks a response for the message. History is accepted for interface
// compatibility with a future model-backed implementation but is unused.
func Reply(message string, history []string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "bonjour"):
		return "Hello there! How can I assist you with your finances today?"
	case strings.Contains(lower, "help") || strings.Contains(lower, "aide"):
		return "I can help you with budget planning, expense tracking, and financial advice. What do you need?"
	case strings.Contains(lower, "budget"):
		return "Sure, I can help with that. Are you looking to create a new budget or review an existing one?"
	}

	return fmt.Sprintf("You said: %q. This is a simulated response.", message)
}
