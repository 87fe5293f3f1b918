// Package mocks provides centralized mock implementations for testing.
//
// Every mock exposes function fields (…Fn) that override its behavior and
// call counters guarded by a mutex, so tests running in parallel can assert
// on how a collaborator was used. MockTaskStore and MockResultCache keep real
// in-memory state, which makes them usable as fakes in end-to-end tests.
//
// Usage:
//
//	import "github.com/phrazzld/audiobrief/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    summarizer := &mocks.MockSummarizer{
//	        SummarizeFn: func(ctx context.Context, instructions, query string) (string, error) {
//	            return `{"summary_possible": true, "summary_text": "..."}`, nil
//	        },
//	    }
//
//	    // Use the mock in your test...
//	}
package mocks
