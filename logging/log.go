// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the zapcore levels so configs do not import zap.
type Level int8

const (
	DebugLevel Level = Level(zapcore.DebugLevel)
	InfoLevel  Level = Level(zapcore.InfoLevel)
	WarnLevel  Level = Level(zapcore.WarnLevel)
	ErrorLevel Level = Level(zapcore.ErrorLevel)
	// PanicLevel logs then panics, the matching engine uses it for ledger
	// invariant violations.
	PanicLevel Level = Level(zapcore.PanicLevel)
	FatalLevel Level = Level(zapcore.FatalLevel)
)

var ErrInvalidLevel = errors.New("invalid log level")

var (
	levelNames = map[Level]string{
		DebugLevel: "debug",
		InfoLevel:  "info",
		WarnLevel:  "warning",
		ErrorLevel: "error",
		PanicLevel: "panic",
		FatalLevel: "fatal",
	}
	levelAliases = map[string]Level{"warn": WarnLevel}
)

// ParseLevel is case insensitive and accepts "warn" for "warning".
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if lvl, ok := levelAliases[s]; ok {
		return lvl, nil
	}
	for lvl, name := range levelNames {
		if name == s {
			return lvl, nil
		}
	}
	return InfoLevel, errors.Wrapf(ErrInvalidLevel, "%q", s)
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// Logger is a zap logger whose level can be changed at runtime. Every
// Named or With call produces a logger with its own level.
type Logger struct {
	*zap.Logger

	level  zap.AtomicLevel
	enc    zapcore.Encoder
	out    zapcore.WriteSyncer
	name   string
	fields []zap.Field
}

func newLogger(enc zapcore.Encoder, out zapcore.WriteSyncer, lvl Level, name string, fields []zap.Field) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.Level(lvl))
	zl := zap.New(zapcore.NewCore(enc.Clone(), out, level), zap.AddCaller())
	if name != "" {
		zl = zl.Named(name)
	}
	return &Logger{
		Logger: zl.With(fields...),
		level:  level,
		enc:    enc,
		out:    out,
		name:   name,
		fields: fields,
	}
}

// Clone returns a copy with the same name, fields and current level.
func (log *Logger) Clone() *Logger {
	return newLogger(log.enc, log.out, log.GetLevel(), log.name, log.fields)
}

// Named appends name to the dotted logger name.
func (log *Logger) Named(name string) *Logger {
	if log.name != "" {
		name = log.name + "." + name
	}
	return newLogger(log.enc, log.out, log.GetLevel(), name, log.fields)
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	all := make([]zap.Field, 0, len(log.fields)+len(fields))
	all = append(append(all, log.fields...), fields...)
	return newLogger(log.enc, log.out, log.GetLevel(), log.name, all)
}

func (log *Logger) GetName() string { return log.name }

func (log *Logger) GetLevel() Level { return Level(log.level.Level()) }

func (log *Logger) GetLevelString() string { return log.GetLevel().String() }

func (log *Logger) SetLevel(level Level) {
	log.level.SetLevel(zapcore.Level(level))
}

// AtExit flushes buffered entries, defer it right after building a logger.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

// NewLoggerFromConfig builds a console logger for the "dev" environment and
// a json one otherwise, at the configured level.
func NewLoggerFromConfig(cfg Config) *Logger {
	return build(cfg.Environment == "dev", cfg.Level)
}

// NewTestLogger logs everything to the console.
func NewTestLogger() *Logger {
	return build(true, DebugLevel)
}

func build(dev bool, lvl Level) *Logger {
	var enc zapcore.Encoder
	if dev {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "@timestamp"
		ec.MessageKey = "message"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	}
	return newLogger(enc, zapcore.Lock(os.Stdout), lvl, "", nil)
}

// The printf style methods below let the logger serve libraries such as
// badger that expect one.

func (log *Logger) Errorf(s string, args ...interface{}) {
	log.sugar().Errorf(strings.TrimSpace(s), args...)
}

func (log *Logger) Warningf(s string, args ...interface{}) {
	log.sugar().Warnf(strings.TrimSpace(s), args...)
}

func (log *Logger) Infof(s string, args ...interface{}) {
	log.sugar().Infof(strings.TrimSpace(s), args...)
}

func (log *Logger) Debugf(s string, args ...interface{}) {
	log.sugar().Debugf(strings.TrimSpace(s), args...)
}

func (log *Logger) sugar() *zap.SugaredLogger {
	return log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}
