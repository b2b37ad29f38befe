package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures the global logger to write human-readable lines to
// stderr. Call once at startup before any logging.
func Setup(debug bool) {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339Nano,
		NoColor:    true,
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func Debug(msg string, kv ...any) {
	emit(zlog.Debug(), msg, kv)
}

func Info(msg string, kv ...any) {
	emit(zlog.Info(), msg, kv)
}

func Error(msg string, err error, kv ...any) {
	emit(zlog.Error().Err(err), msg, kv)
}

// emit appends kv as key-value pairs. An odd trailing argument is ignored.
func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
