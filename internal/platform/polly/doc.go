// Package polly wraps Amazon Polly's asynchronous speech synthesis task API
// behind the submit/query contract the lifecycle engine consumes. It never
// retries; each call is bounded by the configured request timeout.
package polly
