package apiclient_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	// Keep request and warning logs out of test output
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}
