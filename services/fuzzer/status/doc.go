// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package status serves a small HTTP surface beside a running
// campaign: live stats as JSON, a liveness probe, and the Prometheus
// scrape endpoint. The server is read-only and optional — the campaign
// never depends on it, and long-running fuzzing sessions opt in with
// --status-addr.
package status
