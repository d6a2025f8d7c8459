package workers

import (
	"os"
	"runtime"
	"strconv"

	"camfeed/internal/logging"
)

// EnvOverride fixes the number of concurrent encoder runs when set to a positive integer.
const EnvOverride = "ENCODER_WORKERS"

// encoderMultiplier is low because each encoder process is itself multithreaded.
const encoderMultiplier = 0.5

// Count returns GOMAXPROCS scaled by multiplier, at least 1 and at most limit.
// GOMAXPROCS follows container CPU limits, unlike runtime.NumCPU. Use limit 0 for
// no cap.
func Count(multiplier float64, limit int) int {
	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForEncoder returns how many encoder processes may run at once. ENCODER_WORKERS
// overrides the CPU-derived value and is not capped by limit.
func ForEncoder(limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			return count
		}
		logging.Warn("Invalid %s value %q, sizing from CPUs", EnvOverride, override)
	}
	return Count(encoderMultiplier, limit)
}
