// Package gradio implements generation.ImageGenerator against a Hugging Face
// Gradio Space using the Space's HTTP call API: a POST that queues the call
// and returns an event id, followed by a server-sent event stream carrying
// the result, and finally a download of the produced file.
package gradio
