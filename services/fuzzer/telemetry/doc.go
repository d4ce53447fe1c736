// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry initializes OpenTelemetry tracing and metrics for
// zkfuzz.
//
// Be opinionated about the API, flexible about the backend: OTel is
// the abstraction layer, so callers use otel.Tracer() and the span
// helpers here directly and swap backends through exporter
// configuration, not code.
//
// Campaign counters are plain Prometheus collectors registered by
// their packages; the Prometheus exporter bridges any OTel-recorded
// metrics into the same default registry, so one /metrics endpoint
// serves both. Tracing defaults to off — a fuzzing run is a local CLI
// session, and spans only matter when someone points
// OTEL_TRACES_EXPORTER at a collector.
//
// Environment variables:
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - ZKFUZZ_ENV: environment name (default: development)
package telemetry
