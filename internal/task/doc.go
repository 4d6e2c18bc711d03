// Package task manages asynchronous chat jobs: the job registries that back the
// polling contract, the bounded queue and worker pool that execute jobs away
// from the HTTP request cycle, and the text and image job bodies that call the
// slow external services and merge their results into the conversation.
package task
