// Package api exposes the audiobook task endpoints over HTTP.
//
// Clients submit a book query and receive a task reference right away; the
// summary, narration and upload run in the background. A resubmission of the
// same query joins the existing task or returns the cached result. The
// remaining endpoints report task status, retry a timed-out task, and requeue
// every timed-out task at once. The media routes speak arbitrary text and
// accept file uploads, writing straight to blob storage without a task. Service errors are mapped to status codes and
// safe messages in errors.go so internal details never reach the client.
package api
