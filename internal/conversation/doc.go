// Package conversation owns the shared, append-only conversation state.
//
// A Store guards one conversation behind a mutex so that concurrent workers
// can append turns safely. A Provider decides how stores are scoped: one
// global store for the whole process, or one store per client session key.
package conversation
