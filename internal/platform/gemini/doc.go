// Package gemini provides an implementation of the generation.Generator interface
// that uses Google's Gemini API to produce chat replies.
//
// This package is an infrastructure adapter connecting the chat service to the
// external Gemini service. It translates the application's role-tagged message
// list into Gemini contents without exposing the details of the external
// service to the core application.
//
// System messages are sent as the request's system instruction; user and
// assistant messages become "user" and "model" contents in order. Replies
// stopped by safety filters are reported as generation.ErrContentBlocked, and
// every other failure wraps generation.ErrExternalService.
package gemini
