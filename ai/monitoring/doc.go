// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package monitoring keeps an in-memory log of provider request lifecycle
events and derives metrics from it on demand: per-provider totals, error
rate, average and p99 latency, and hourly buckets. Events older than the
retention period are pruned by a background timer. Alerts are
level-triggered threshold checks evaluated as events arrive; terminal
events are additionally handed to an optional Persister for durable
storage, best-effort.
*/
package monitoring
