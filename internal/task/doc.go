// Package task runs audiobook tasks in the background. A TaskRunner owns a
// bounded queue of task IDs and a pool of workers; each worker hands the ID
// to a Processor, normally the SummaryPipeline, which drives the task from
// pending to a terminal status. The runner also recovers work left behind by
// a restart and periodically sweeps tasks that stalled.
package task
