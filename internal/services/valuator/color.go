package valuator

import (
	"hash/fnv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var coinColors = map[string]string{
	"BTC":  "#F7931A",
	"ETH":  "#627EEA",
	"BNB":  "#F3BA2F",
	"SOL":  "#00FFA3",
	"XRP":  "#23292F",
	"USDT": "#26A17B",
	"USDC": "#2775CA",
	"BUSD": "#F0B90B",
}

// Color returns the display color of a coin. Known coins use their brand color,
// others get a color derived from the symbol, so a coin keeps its color across
// refreshes and restarts.
func Color(coin string) string {
	if c, ok := coinColors[coin]; ok {
		return c
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(coin))
	sum := h.Sum32()

	hue := float64(sum%360)
	saturation := 0.55 + float64((sum>>9)%30)/100
	value := 0.70 + float64((sum>>17)%25)/100

	return colorful.Hsv(hue, saturation, value).Hex()
}
