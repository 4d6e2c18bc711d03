// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the chat service to JSON endpoints and
// keeps the legacy form of each endpoint available for older clients.
package api
