package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which dashboard panels stack.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show the endpoint in the header.
	LayoutWideWidth = 140
)

// Chrome lines around the page content: header, tab bar and command bar.
const chromeHeight = 3

// Log view settings.
const (
	// LogRefreshInterval is how often the logs page refetches while following.
	LogRefreshInterval = 5 * time.Second

	// LogLines is how many lines a log fetch asks for.
	LogLines = 200
)

// Timing constants.
const (
	// ActionTimeout bounds refresh, toggle and config update requests.
	ActionTimeout = 10 * time.Second

	// FlashDuration is how long an action result stays in the command bar.
	FlashDuration = 4 * time.Second

	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)
