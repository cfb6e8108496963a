package pcfg

import (
	"math"
	"sync"

	"github.com/tliron/commonlog"
)

var (
	logOnce sync.Once
	logger  commonlog.Logger
)

// log returns the package logger. Nothing is printed unless the program
// embedding this package registers a commonlog backend; the logger is looked
// up on first use, after the backend is in place.
func log() commonlog.Logger {
	logOnce.Do(func() {
		logger = commonlog.GetLogger("pcfg")
	})
	return logger
}

// logProb converts a rule probability to log space. A probability that is not
// defined (zero, negative or NaN) counts as 1.0 so weighted and unweighted
// grammars share one code path.
func logProb(p float64) float64 {
	if !(p > 0) {
		return 0
	}
	return math.Log(p)
}

// debugEnabled reports whether debug dumps should be produced
func debugEnabled() bool {
	return log().AllowLevel(commonlog.Debug)
}
