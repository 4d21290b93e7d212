// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package metrics exports the service's Prometheus metric families: HTTP
request counts and latency, AI provider call outcomes and token usage,
cache hit/miss counters, circuit breaker position, and request-log store
query latency. The Collector is handed to the HTTP middleware and the AI
service manager as a plain interface so neither depends on Prometheus
directly.
*/
package metrics
