// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// EngineAnalysis caps a single comparison run against the reasoning
// engine, including the fallback attempt.
const EngineAnalysis = 30 * time.Second

// EngineRequest caps one HTTP round trip to the reasoning engine so a
// slow primary still leaves room for the fallback inside the analysis
// budget.
const EngineRequest = 25 * time.Second

// EventSync is the default interval for polling clients catching up on
// alignment events.
const EventSync = 10 * time.Second
