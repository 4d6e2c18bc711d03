// Package openai implements generation.Generator against OpenAI-compatible
// chat completion endpoints: OpenAI itself and LLM7, the anonymous gateway
// that serves the default model catalog.
package openai
