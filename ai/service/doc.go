// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package service composes the AI interpretation pipeline. The Manager owns
one client, circuit breaker, and retry executor per configured provider and
performs provider selection and fallback. The Enhancer sits on top:
validate the chart, consult the response cache, build the prompt, call the
Manager, cache the result.

All cross-cutting collaborators (monitor, metrics recorder, cache, logger)
are injected at construction time.
*/
package service
