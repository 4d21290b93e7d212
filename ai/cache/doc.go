// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package cache stores interpretation responses keyed by a sha256 fingerprint
of the chart and user profile. The local in-process tier is authoritative
for eviction and statistics; an optional Redis tier shares entries across
instances on a best-effort basis, so a broken Redis degrades to local-only
caching instead of failing requests. GetOrCompute collapses concurrent
misses for the same key into a single provider call.
*/
package cache
