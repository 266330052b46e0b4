package logging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// Level is the severity of a log entry.
type Level int

// Levels in increasing severity. Their values line up with zapcore's.
const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "Debug",
	INFO:  "Info",
	WARN:  "Warn",
	ERROR: "Error",
}

func (level Level) String() string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(level))
}

// AsZap converts the Level to a `zapcore.Level`.
func (level Level) AsZap() zapcore.Level {
	return zapcore.Level(level)
}

// LevelFromString parses one of debug, info, warn (or warning) and error, ignoring case.
func LevelFromString(inp string) (Level, error) {
	lower := strings.ToLower(inp)
	if lower == "warning" {
		return WARN, nil
	}
	for level, name := range levelNames {
		if strings.ToLower(name) == lower {
			return level, nil
		}
	}
	return DEBUG, errors.Errorf("unknown log level: %q", inp)
}

// MarshalJSON encodes the level as its lowercase name.
func (level Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(level.String()))
}

// UnmarshalJSON accepts any name LevelFromString does.
func (level *Level) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := LevelFromString(name)
	if err != nil {
		return err
	}
	*level = parsed
	return nil
}

// AtomicLevel is a Level safe for concurrent use. Copies share the same underlying value.
type AtomicLevel struct {
	val *atomic.Int32
}

// NewAtomicLevelAt returns an AtomicLevel holding level.
func NewAtomicLevelAt(level Level) AtomicLevel {
	return AtomicLevel{val: atomic.NewInt32(int32(level))}
}

// Set changes the level.
func (al AtomicLevel) Set(level Level) {
	al.val.Store(int32(level))
}

// Get returns the level.
func (al AtomicLevel) Get() Level {
	return Level(al.val.Load())
}
