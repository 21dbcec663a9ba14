// Package prompt builds the conversation sent to the text-generation model.
//
// There is exactly one system prompt. Every entry point (HTTP, gRPC) goes
// through BuildConversation so the action vocabulary and worked examples
// cannot drift between them.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nadzzz/saturday/internal/action"
	"github.com/nadzzz/saturday/internal/message"
)

// example maps a natural-language command to the descriptor the model should
// produce. A nil value renders as JSON null.
type example struct {
	command string
	action  action.Action
	value   *string
}

func strp(s string) *string { return &s }

var examples = []example{
	{"open youtube.com", action.OpenTab, strp("https://youtube.com")},
	{"search for AI assistants", action.SearchGoogle, strp("AI assistants")},
	{"add 'buy milk' to my to-do list", action.AddTodo, strp("buy milk")},
	{"what are my tasks today?", action.GetTasks, nil},
	{"explain this article to me", action.ExplainPage, strp(action.ContextRequired)},
	{"who was the first US president?", action.AnswerGeneral, strp("who was the first US president?")},
}

// systemPrompt is rendered once at init and never changes afterwards.
var systemPrompt = renderSystemPrompt()

func renderSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(`You are "Saturday", an AI assistant. Your personality is insightful, friendly, and exceptionally capable. `)
	sb.WriteString("Your primary function is to understand user commands and convert them into a structured JSON format. ")
	sb.WriteString("ALWAYS respond with ONLY a valid JSON object. Do not add any explanatory text before or after the JSON.\n\n")

	sb.WriteString("The valid actions are: " + action.Quoted() + ".\n\n")

	sb.WriteString("If the user's command requires context from the webpage (like summarizing or finding a word), use the 'context' data provided.\n\n")

	sb.WriteString("Examples:\n")
	for _, ex := range examples {
		value := "null"
		if ex.value != nil {
			value = fmt.Sprintf("%q", *ex.value)
		}
		fmt.Fprintf(&sb, "- User: %q -> {\"action\": %q, \"value\": %s}\n", ex.command, string(ex.action), value)
	}
	return sb.String()
}

// SystemPrompt returns the shared system prompt.
func SystemPrompt() string { return systemPrompt }

// UserContent returns the user message for command. When context is
// non-empty the command is wrapped in the context template; otherwise the
// command is used verbatim.
func UserContent(command, context string) string {
	if context == "" {
		return command
	}
	return "Based on the following context, please process the command.\n\n" +
		"Context:\n\"\"\"\n" + context + "\n\"\"\"\n\n" +
		"Command: \"" + command + "\""
}

// BuildConversation returns a fresh [system, user] conversation for command.
func BuildConversation(command, context string) []message.ChatMessage {
	return []message.ChatMessage{
		{Role: message.RoleSystem, Content: systemPrompt},
		{Role: message.RoleUser, Content: UserContent(command, context)},
	}
}
