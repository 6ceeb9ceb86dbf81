package utils

import (
	"math/rand"
	"time"
)

// RandomDelay sleeps for a uniformly random duration in [minMs, maxMs]
// milliseconds. Used between requests to throttle the scrape rate.
func RandomDelay(minMs, maxMs int) {
	if minMs < 0 {
		minMs = 0
	}
	if maxMs <= minMs {
		time.Sleep(time.Duration(minMs) * time.Millisecond)
		return
	}
	ms := minMs + rand.Intn(maxMs-minMs+1)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
