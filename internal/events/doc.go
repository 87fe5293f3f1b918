// Package events carries task lifecycle notifications from the pipeline to
// whoever wants them (chat notifiers, message brokers, logs) without the
// pipeline knowing about any of them.
//
// The primary components are:
// - TaskEvent: emitted once when a task reaches a terminal status
// - EventHandler: implemented by consumers of task events
// - EventEmitter: implemented by dispatchers, e.g. InMemoryEventEmitter
package events
