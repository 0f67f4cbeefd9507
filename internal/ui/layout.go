package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the detail pane is
	// hidden.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the threshold for a wider table pane.
	LayoutExtraWideWidth = 160
)

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the stores.
	DefaultUIInterval = time.Second

	// FlashDuration is how long a status line message stays visible.
	FlashDuration = 6 * time.Second

	// ActionTimeout bounds a single write or side read.
	ActionTimeout = 15 * time.Second
)
