// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package openai implements the ai.Client contract against the OpenAI Chat
// Completions API with JSON response formatting.
package openai
