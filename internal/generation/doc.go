// Package generation defines the boundary between the chat core and the slow
// external services it depends on: a language-inference service (LLM) used for
// assistant replies and image prompt synthesis, an image-generation service,
// and the image store that serves generated content. Concrete adapters live
// under internal/platform.
package generation
