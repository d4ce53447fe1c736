// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report assembles and renders campaign summaries.
//
// A report is built either from the corpus store's run journal, which
// carries the campaign's final stats snapshot, or by scanning a bare
// corpus root when no index is available (a copied corpus, external
// cleanup). Rendering goes through the shared ux styles, so summaries
// degrade to plain parseable text on pipes and in machine mode.
package report
