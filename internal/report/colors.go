package report

import (
	"fmt"
	"time"

	"github.com/mgutz/ansi"
)

// Colorizer is a colorizer for the run summary output.
type Colorizer struct {
	headingTitleColorizer func(string) string
	headingJobColorizer   func(string) string
	successColorizer      func(string) string
	failureColorizer      func(string) string
	skippedColorizer      func(string) string
	pendingColorizer      func(string) string
	reasonColorizer       func(string) string
	millisecondColorizer  func(string) string
	secondColorizer       func(string) string
	minuteColorizer       func(string) string
	defaultColorizer      func(string) string
}

// NewColorizer creates a new Colorizer.
func NewColorizer(shouldColor bool) *Colorizer {
	if !shouldColor {
		plain := func(s string) string { return s }

		return &Colorizer{
			headingTitleColorizer: plain,
			headingJobColorizer:   plain,
			successColorizer:      plain,
			failureColorizer:      plain,
			skippedColorizer:      plain,
			pendingColorizer:      plain,
			reasonColorizer:       plain,
			millisecondColorizer:  plain,
			secondColorizer:       plain,
			minuteColorizer:       plain,
			defaultColorizer:      plain,
		}
	}

	return &Colorizer{
		headingTitleColorizer: ansi.ColorFunc("yellow+bh"),
		headingJobColorizer:   ansi.ColorFunc("white+bh"),
		successColorizer:      ansi.ColorFunc("green+bh"),
		failureColorizer:      ansi.ColorFunc("red+bh"),
		skippedColorizer:      ansi.ColorFunc("yellow+bh"),
		pendingColorizer:      ansi.ColorFunc("blue+bh"),
		reasonColorizer:       ansi.ColorFunc("gray"),
		millisecondColorizer:  ansi.ColorFunc("cyan+bh"),
		secondColorizer:       ansi.ColorFunc("green+bh"),
		minuteColorizer:       ansi.ColorFunc("yellow+bh"),
		defaultColorizer:      ansi.ColorFunc("white+bh"),
	}
}

func (c *Colorizer) result(result Result) func(string) string {
	switch result {
	case ResultSucceeded:
		return c.successColorizer
	case ResultFailed:
		return c.failureColorizer
	case ResultSkipped:
		return c.skippedColorizer
	case ResultPending:
		return c.pendingColorizer
	}

	return c.defaultColorizer
}

// colorDuration returns the duration as a string, colored based on the duration.
func (c *Colorizer) colorDuration(duration time.Duration) string {
	if duration < 0 {
		return c.defaultColorizer("N/A")
	}

	if duration < time.Second {
		return c.millisecondColorizer(fmt.Sprintf("%dms", duration.Milliseconds()))
	}

	if duration < time.Minute {
		return c.secondColorizer(fmt.Sprintf("%ds", int(duration.Seconds())))
	}

	return c.minuteColorizer(fmt.Sprintf("%dm%ds", int(duration.Minutes()), int(duration.Seconds())%60))
}
