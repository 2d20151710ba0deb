package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger for the HTTP layer. Nil until SetLogger.
var zlog *zerolog.Logger

var fallbackLog = zerolog.New(os.Stderr).With().Timestamp().Str("component", "httpapi").Logger()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() *zerolog.Logger {
	if zlog != nil {
		return zlog
	}
	return &fallbackLog
}

// loggingLineWriter logs complete NDJSON lines at debug level.
type loggingLineWriter struct {
	reqID string
	buf   []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if idx > 0 {
			logger().Debug().Str("request_id", lw.reqID).RawJSON("line", lw.buf[:idx]).Msg("query>")
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug", "1":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from GENLOOP_HTTP_LOG.
var defaultLogLevel = parseLevel(os.Getenv("GENLOOP_HTTP_LOG"))

// requestLogLevel honours ?log= and X-Log-Level overrides.
func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart and logEnd bracket a request at the requested verbosity.
func logStart(r *http.Request, lvl LogLevel, op string) {
	if lvl < LevelInfo {
		return
	}
	logger().Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("op", op).
		Str("remote", r.RemoteAddr).
		Msg("request start")
}

func logEnd(r *http.Request, lvl LogLevel, op string, status int, start time.Time, err error) {
	if lvl == LevelOff {
		return
	}
	if err == nil && lvl < LevelInfo {
		return
	}
	ev := logger().Info()
	if err != nil {
		ev = logger().Error().Err(err)
	}
	ev.Str("request_id", middleware.GetReqID(r.Context())).
		Str("op", op).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("request end")
}
