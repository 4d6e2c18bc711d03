// Package ollama implements generation.Generator against a local Ollama
// server's /api/chat endpoint, the backend used by the self-hosted variant of
// the chat service.
package ollama
