// Package service contains the chat use cases that sit between the HTTP
// layer and the background job machinery.
//
// ChatService routes a submission either to a text job or, when it starts
// with the image command prefix, to an image job. The user's own turn is
// appended before any background work starts, so it stays visible even if
// generation later fails. Polling, model selection and history reads all go
// through the same service so the HTTP layer never touches shared state
// directly.
//
// Errors:
//   - Validation failures are returned as domain sentinel errors
//   - Capacity failures (full queue or registry) come from the task package
//   - Everything else is wrapped in ChatServiceError, which unwraps to its cause
package service
