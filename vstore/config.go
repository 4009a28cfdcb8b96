package vstore

import "github.com/merelin/diffa-sub000/hierarchy"

// Config of the version store.
type Config struct {
	// DefaultMaxSliceSize applies to endpoints without an explicit slice size.
	DefaultMaxSliceSize int `mapstructure:"default-max-slice-size"`
	// IDCacheSize bounds the number of memoized entity id digests.
	IDCacheSize int `mapstructure:"id-cache-size"`
}

// DefaultConfig for the version store.
func DefaultConfig() Config {
	return Config{
		DefaultMaxSliceSize: 100,
		IDCacheSize:         hierarchy.DefaultIDCacheSize,
	}
}
