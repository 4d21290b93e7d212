// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package config builds the immutable service configuration from defaults,
an optional YAML file, and GAESAJU_* environment overrides, in that
precedence order. Provider resolution runs once at startup: it decides
which backends are enabled from the present credentials, picks the default
(lowest cost first under "auto"), and fails with a ConfigurationError
rather than letting the service start half-configured.
*/
package config
