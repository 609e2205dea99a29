package report

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Setup initializes the Sentry SDK from the SENTRY_DSN environment variable.
// With an empty DSN the SDK is a no-op, which is the expected state in
// development and in tests.
func Setup() {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	sentry.CaptureMessage("mapengine started")
}

// Flush drains buffered events before shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
