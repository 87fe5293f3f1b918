// Package postgres provides the PostgreSQL implementation of store.TaskStore
// together with the embedded goose migrations that create its schema.
//
// Status changes that must not race, such as claiming a pending task for a
// worker, go through Mutate, which locks the row with SELECT ... FOR UPDATE
// inside a transaction.
package postgres
