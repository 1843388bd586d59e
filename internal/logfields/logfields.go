package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPhase      = "phase"
	KeyStep       = "step"
	KeyStatus     = "status"
	KeyReason     = "reason"
	KeyBlock      = "block"
	KeyTemplate   = "template"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyEnv        = "env"
	KeySession    = "session_id"
	KeyPageID     = "page_id"
	KeyCheckpoint = "checkpoint"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyStatusCode = "status_code"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Phase(p string) slog.Attr           { return slog.String(KeyPhase, p) }
func Step(s string) slog.Attr            { return slog.String(KeyStep, s) }
func Status(s string) slog.Attr          { return slog.String(KeyStatus, s) }
func Reason(r string) slog.Attr          { return slog.String(KeyReason, r) }
func Block(name string) slog.Attr        { return slog.String(KeyBlock, name) }
func Template(name string) slog.Attr     { return slog.String(KeyTemplate, name) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Env(e string) slog.Attr             { return slog.String(KeyEnv, e) }
func Session(id string) slog.Attr        { return slog.String(KeySession, id) }
func PageID(id string) slog.Attr         { return slog.String(KeyPageID, id) }
func Checkpoint(c string) slog.Attr      { return slog.String(KeyCheckpoint, c) }
func Backend(b string) slog.Attr         { return slog.String(KeyBackend, b) }
func Method(m string) slog.Attr          { return slog.String(KeyMethod, m) }
func StatusCode(code int) slog.Attr      { return slog.Int(KeyStatusCode, code) }
func UserAgent(ua string) slog.Attr      { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr   { return slog.String(KeyRemoteAddr, addr) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
