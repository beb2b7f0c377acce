package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner prints the startup banner with version information
func PrintBanner() {
	banner.PrintSimple("Arca", Version)
}
