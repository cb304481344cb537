// Package telemetry sets up OpenTelemetry metric and trace providers and
// defines the reconciliation metrics recorded by the lifecycle engine.
package telemetry
