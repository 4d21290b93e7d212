// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package gemini implements the ai.Client contract against the Gemini
// generateContent API, including its 200-with-block-reason safety path.
package gemini
