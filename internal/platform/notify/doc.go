// Package notify contains events.EventHandler implementations that tell the
// outside world a task has finished: a Telegram chat message, a Kafka record
// and a structured log line.
package notify
