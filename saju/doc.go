// Copyright 2026 Gae-Saju Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# Overview

Package saju defines the chart data model shared with the saju calculator.
The calculator itself (calendar-to-pillars conversion, five-elements
scoring) is an external collaborator; this package only carries its output
across the AI interpretation pipeline.
*/
package saju
