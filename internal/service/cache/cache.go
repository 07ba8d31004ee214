package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL.
// A miss is (nil, false, nil); err is reserved for backend failures.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
