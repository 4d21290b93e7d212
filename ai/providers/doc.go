// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package providers holds the plumbing shared by the concrete LLM backends:
mapping HTTP statuses and transport failures onto the service error
taxonomy, reading provider error envelopes, and parsing the structured
interpretation payload out of a completion.
*/
package providers
