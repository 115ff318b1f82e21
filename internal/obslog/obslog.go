// Package obslog provides the single package-level logger used across
// agentweb, grounded on the teacher's spider.go init() — a *logrus.Logger
// with the prefixed text formatter, colors forced for terminal use.
package obslog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Log is the shared logger. Host processes may call SetVerbose/SetQuiet to
// adjust it; library code never constructs its own logger.
var Log *logrus.Logger

func init() {
	Log = &logrus.Logger{
		Out:   os.Stderr,
		Level: logrus.InfoLevel,
		Formatter: &prefixed.TextFormatter{
			ForceColors:     true,
			ForceFormatting: true,
		},
	}
}

// SetVerbose toggles Debug-level logging.
func SetVerbose(v bool) {
	if v {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// SetQuiet silences the logger entirely (used by hosts that only want
// the render result, not progress lines).
func SetQuiet(q bool) {
	if q {
		Log.SetOutput(io.Discard)
	} else {
		Log.SetOutput(os.Stderr)
	}
}
