package outwriter

import (
	"os"

	"github.com/huangsam/covdelta/internal/contract"
	"golang.org/x/term"
)

// getMaxColumnWidth calculates the maximum width for a free-text column (build ids,
// reference messages) given the space the fixed columns of a table take.
func getMaxColumnWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - fixedWidth - 10
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
