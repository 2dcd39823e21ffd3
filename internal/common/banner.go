package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the CLI banner
func PrintBanner() {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetTextColor(banner.ColorWhite).
		SetBold(true)

	b.PrintTopLine()
	b.PrintCenteredText("gridcheck")
	b.PrintCenteredText("grid verification")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", GetFullVersion(), 10)
	b.PrintBottomLine()
}
