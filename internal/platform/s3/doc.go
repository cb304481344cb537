// Package s3 issues presigned download URLs for synthesized audio and deletes
// the objects behind them. Locations are either s3://bucket/key references or
// the HTTPS object URLs Polly reports as a task's output URI.
package s3
