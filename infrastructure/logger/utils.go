package logger

import (
	"time"
)

// LogAndMeasureExecutionTime is meant to be deferred as
// `defer LogAndMeasureExecutionTime(log, "name")()`. Both ends of the call
// are logged at debug level, the second one with the elapsed time.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
