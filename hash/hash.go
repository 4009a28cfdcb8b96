// Package hash holds the hash functions that bucket digests can be computed with.
package hash

import (
	"crypto/md5"
	"fmt"
	stdhash "hash"
	"slices"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// Func creates a fresh hasher.
type Func func() stdhash.Hash

const (
	// NameMD5 produces digests compatible with existing participants.
	NameMD5 = "md5"
	// NameSHA256 is sha256 backed by minio simd implementation.
	NameSHA256 = "sha256"
	// NameBLAKE3 is blake3.
	NameBLAKE3 = "blake3"
)

var (
	// MD5 is an alias to crypto/md5 New.
	MD5 Func = md5.New
	// SHA256 is an alias to minio sha256.New.
	SHA256 Func = sha256.New
	// BLAKE3 creates blake3 hashers with default output size.
	BLAKE3 Func = func() stdhash.Hash { return blake3.New() }

	// Default is used when nothing else is configured.
	Default = MD5
)

var registry = map[string]Func{
	NameMD5:    MD5,
	NameSHA256: SHA256,
	NameBLAKE3: BLAKE3,
}

// ByName returns hash function registered under name. Empty name selects Default.
func ByName(name string) (Func, error) {
	if name == "" {
		return Default, nil
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown hash function %q (supported: %v)", name, Names())
	}
	return fn, nil
}

// Names returns sorted names of the registered hash functions.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
