package openai

import "github.com/user/widgetsmith/pkg/llm"

// Compile-time interface checks.
var (
	_ llm.Provider = (*Client)(nil)
	_ llm.Stream   = (*chatStream)(nil)
)
