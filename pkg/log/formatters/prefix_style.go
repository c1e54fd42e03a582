package formatters

import (
	"sync"

	"github.com/mgutz/ansi"
	"github.com/puzpuzpuz/xsync/v3"
)

// defaultPrefixStyles are 256-color codes assigned in rotation to each newly seen job prefix,
// so that interleaved lines from concurrent fetches stay distinguishable.
var defaultPrefixStyles = []string{
	"66", "67", "95", "96", "102", "103", "108", "109", "139", "138", "144", "145",
}

// ColorFunc colors the given string.
type ColorFunc func(string) string

// PrefixStyle hands out a stable color per prefix.
type PrefixStyle struct {
	cache           *xsync.MapOf[string, ColorFunc]
	availableStyles []string
	nextStyleIndex  int
	mu              sync.Mutex
}

// NewPrefixStyle returns a PrefixStyle using the default palette.
func NewPrefixStyle() *PrefixStyle {
	return &PrefixStyle{
		cache:           xsync.NewMapOf[string, ColorFunc](),
		availableStyles: defaultPrefixStyles,
	}
}

// ColorFunc returns the color function assigned to prefixName.
func (style *PrefixStyle) ColorFunc(prefixName string) ColorFunc {
	if colorFunc, ok := style.cache.Load(prefixName); ok {
		return colorFunc
	}

	style.mu.Lock()
	defer style.mu.Unlock()

	colorFunc, _ := style.cache.LoadOrCompute(prefixName, func() ColorFunc {
		if style.nextStyleIndex >= len(style.availableStyles) {
			style.nextStyleIndex = 0
		}

		fn := ansi.ColorFunc(style.availableStyles[style.nextStyleIndex])
		style.nextStyleIndex++

		return fn
	})

	return colorFunc
}
