package log

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Levels holds the level of every named module.
type Levels map[string]zap.AtomicLevel

// DecodeLevels decodes module levels from a struct with mapstructure tags or
// from a map of module names to level names.
func DecodeLevels(cfg any) (Levels, error) {
	loggers := map[string]string{}
	if err := mapstructure.Decode(cfg, &loggers); err != nil {
		return nil, fmt.Errorf("error decoding mapstructure: %w", err)
	}
	levels := make(Levels, len(loggers))
	for name, level := range loggers {
		if level == "" {
			continue
		}
		lvl := zap.NewAtomicLevel()
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("cannot parse logging for %v: %w", name, err)
		}
		levels[name] = lvl
	}
	return levels, nil
}

// Named returns a logger for the module with its configured level.
func (l Levels) Named(root *zap.Logger, name string) *zap.Logger {
	lvl, ok := l[name]
	if !ok {
		lvl = zap.NewAtomicLevelAt(DefaultLevel())
	}
	return SetLevel(root.Named(name), lvl)
}
