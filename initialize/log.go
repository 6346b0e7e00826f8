package initialize

import (
	"os"

	"klik-guard/global"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	// basic zerolog setup: console writer to stdout
	cw := zerolog.ConsoleWriter{Out: os.Stdout}
	logger := log.Output(cw)
	global.Logger = logger
}

// SetLogLevel applies a named level to the process logger. Unknown names
// fall back to info.
func SetLogLevel(name string) {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	global.Logger = global.Logger.Level(lvl)
}
