// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package circuitbreaker implements a three-state failure breaker. Eligible
consecutive failures open it; after the reset timeout a single probe is
admitted, and its outcome either closes the breaker or reopens it. Which
errors count is decided by the injected Eligible predicate, keeping the
breaker free of any provider-specific knowledge.
*/
package circuitbreaker
