// Package domain contains the core business entities of the audiobook
// service: the task state machine, the structured summary returned by the
// language model, and the fingerprint used as cache and dedupe key. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
