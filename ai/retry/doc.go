// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package retry executes provider calls with exponential backoff and jitter.
Only errors whose code is retryable are attempted again; the breaker, when
supplied, is consulted before every attempt so an open breaker fails fast
without touching the provider. When attempts are exhausted the final
error is returned unchanged.
*/
package retry
