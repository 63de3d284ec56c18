package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/httperr"
)

// mergeContext rewrites the chat body's messages array so the retrieved
// context reaches the model, under the configured policy. The body is
// otherwise untouched; unknown fields pass through as-is.
func mergeContext(body []byte, context string, policy config.MergePolicy, ragPrompt string, hasSystemPrompt bool, requestID string) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	if len(messages) == 0 {
		return nil, httperr.BadRequest("Found empty chat messages")
	}

	context = strings.TrimRight(context, "\n ")

	if policy == config.PolicySystemMessage && !hasSystemPrompt {
		log.Info().
			Str("request_id", requestID).
			Msg("The chat model does not support system message. Switch the current rag policy to `last-user-message`")
		policy = config.PolicyLastUserMessage
	}

	switch policy {
	case config.PolicySystemMessage:
		return mergeIntoSystemMessage(body, messages, context, ragPrompt)
	default:
		return mergeIntoLastUserMessage(body, messages, context)
	}
}

func mergeIntoSystemMessage(body []byte, messages []gjson.Result, context, ragPrompt string) ([]byte, error) {
	if messages[0].Get("role").String() == "system" {
		existing := strings.TrimSpace(messages[0].Get("content").String())
		content := existing + "\n"
		if ragPrompt != "" {
			content += ragPrompt + "\n"
		}
		content += context
		out, err := sjson.SetBytes(body, "messages.0.content", content)
		if err != nil {
			return nil, httperr.Operationf("Failed to rewrite the system message: %s", err)
		}
		return out, nil
	}

	content := context
	if ragPrompt != "" {
		content = ragPrompt + "\n" + context
	}
	sys, err := json.Marshal(map[string]string{"role": "system", "content": content})
	if err != nil {
		return nil, httperr.Operationf("Failed to build the system message: %s", err)
	}

	// Prepend by rebuilding the array literal; sjson can only append.
	raw := gjson.GetBytes(body, "messages").Raw
	merged := "[" + string(sys) + "," + strings.TrimPrefix(raw, "[")
	out, err := sjson.SetRawBytes(body, "messages", []byte(merged))
	if err != nil {
		return nil, httperr.Operationf("Failed to insert the system message: %s", err)
	}
	return out, nil
}

func mergeIntoLastUserMessage(body []byte, messages []gjson.Result, context string) ([]byte, error) {
	last := messages[len(messages)-1]
	if last.Get("role").String() != "user" || last.Get("content").Type != gjson.String {
		return nil, httperr.BadRequest("The last message in the chat request should be a user message.")
	}

	content := fmt.Sprintf("%s\nAnswer the question based on the pieces of context above. The question is:\n%s",
		context, strings.TrimSpace(last.Get("content").String()))
	out, err := sjson.SetBytes(body, fmt.Sprintf("messages.%d.content", len(messages)-1), content)
	if err != nil {
		return nil, httperr.Operationf("Failed to rewrite the last user message: %s", err)
	}
	return out, nil
}
