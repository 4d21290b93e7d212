// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package handlers implements the HTTP endpoints: interpretation
enhancement, health, and the development-only diagnostics (cache stats,
monitoring views, request-log history). Handlers translate service error
codes onto HTTP statuses; upstream provider failures surface as 502.
*/
package handlers
