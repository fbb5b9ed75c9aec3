package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard fields: HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

// Standard fields: domain

// Platform tags an entry with the advertising/marketing platform identifier.
func Platform(v string) zap.Field { return zap.String("platform", v) }

// AgencyID tags an entry with the owning agency.
func AgencyID(v string) zap.Field { return zap.String("agency_id", v) }

// AccessRequestID tags an entry with the originating access request.
func AccessRequestID(v string) zap.Field { return zap.String("access_request_id", v) }

// SessionID tags an entry with an ephemeral client session id.
func SessionID(v string) zap.Field { return zap.String("session_id", v) }

// Email tags an entry with an email address (mask it in prod paths).
func Email(v string) zap.Field { return zap.String("email", v) }

// Standard fields: system

// Op names the current operation.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer names the layer (controller, service, connector, store).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err wraps an error.
func Err(err error) zap.Field { return zap.Error(err) }

// Generic fields

func Count(v int) zap.Field { return zap.Int("count", v) }

func Key(v string) zap.Field { return zap.String("key", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
