package testlog

import (
	"testing"

	"github.com/danmuck/nexusctl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log := logging.New("test")
	log.Debug().Str("test", t.Name()).Msg("start")
}
