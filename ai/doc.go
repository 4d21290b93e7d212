// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package ai defines the contracts shared across the interpretation pipeline:
the provider-agnostic Client interface, the request and response value
objects, and the closed ErrorCode taxonomy every failure is classified
into. Retry eligibility and circuit breaker accounting are derived from the
error code alone, so providers, the retry executor, and the manager never
need to agree on anything beyond this package.
*/
package ai
