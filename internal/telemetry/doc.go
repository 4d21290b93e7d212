// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package telemetry wraps OpenTelemetry SDK setup for distributed traces.
Service metrics are handled separately by the Prometheus collector. When
telemetry is disabled the global tracer provider remains noop and no
exporter connection is opened.
*/
package telemetry
