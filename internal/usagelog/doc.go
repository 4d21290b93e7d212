// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package usagelog persists provider request outcomes to SQLite or Postgres
through GORM. The Store implements the monitor's Persister interface, so
durable request history rides on the same event stream as the in-memory
metrics. Persistence is optional; the service runs without it.
*/
package usagelog
