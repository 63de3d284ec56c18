package rag

// Prompt template families that render no system turn at all. Merging
// context into a system message would silently drop it for these, so the
// policy demotes to last-user-message instead.
var noSystemPrompt = map[string]struct{}{
	"mistral-instruct":        {},
	"mistral-tool":            {},
	"mistrallite":             {},
	"codellama-instruct":      {},
	"codellama-super-instruct": {},
	"gemma-instruct":          {},
	"gemma-3":                 {},
	"human-assistant":         {},
	"octopus":                 {},
	"phi-2-instruct":          {},
	"stablelm-zephyr":         {},
	"zephyr":                  {},
	"baichuan-2":              {},
	"belle-llama-2-chat":      {},
}

// hasSystemPrompt reports whether the template family renders a system
// turn. Unknown templates are assumed to support one.
func hasSystemPrompt(template string) bool {
	_, ok := noSystemPrompt[template]
	return !ok
}
