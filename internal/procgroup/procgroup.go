// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup runs prober children in their own process group so a
// cancelled or timed-out probe can be reaped together with anything it forked.
package procgroup
