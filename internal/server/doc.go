// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package server owns the HTTP listener lifecycle: non-blocking start,
signal-driven graceful shutdown, and surfacing of asynchronous serve
errors. The API server and the metrics endpoint each run behind their own
Manager.
*/
package server
