// Package logging configures the process-wide zerolog logger used by every
// other package through github.com/rs/zerolog/log.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Configure sets the global log level and output writer. A terminal gets a
// human-readable console writer; anything else (a file, a pipe, a
// container's stdout collector) gets line-delimited JSON.
func Configure(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var output = os.Stderr

	if term.IsTerminal(int(output.Fd())) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger()
		return
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}
