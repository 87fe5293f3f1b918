// Package service contains the application use cases of the audiobook API.
//
// AudiobookService sits between the HTTP edge and the background runner. It
// turns a user query into a task handle, answering from the result cache when
// it can and otherwise making sure exactly one task exists per in-flight
// fingerprint before handing the task ID to the runner.
//
// The service depends on the store interfaces (store.TaskStore and
// store.ResultCache) and on a small Enqueuer interface, never on concrete
// infrastructure, so it can be exercised with the fakes in internal/mocks.
package service
