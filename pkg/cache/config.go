package cache

import "time"

// RedisOption configures the Redis window cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	DialTimeout  time.Duration
	// Prefix namespaces every key so several feeds can share one instance.
	Prefix string
}

// WithRedisAddr sets the server address from host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = joinHostPort(host, port)
	}
}

// WithRedisAuth sets the password and database number.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisDialTimeout bounds the startup ping and new connections.
func WithRedisDialTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if d > 0 {
			c.DialTimeout = d
		}
	}
}

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures the in-process window cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig bounds the in-process cache both by entry count and by the
// encoded size of the stored windows.
type MemoryConfig struct {
	MaxSize         int
	MaxBytes        int64
	CleanupInterval time.Duration
}

// WithMemoryMaxSize sets the maximum number of entries.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// WithMemoryMaxBytes caps the total encoded size. Zero disables the cap.
func WithMemoryMaxBytes(n int64) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxBytes = n
	}
}

// WithMemoryCleanup sets the expiry sweep interval.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}

// LayeredOption configures the two-level cache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig holds the L1 settings of a layered cache.
type LayeredConfig struct {
	Memory []MemoryOption
	// MemoryTTL caps how long a window stays in L1 regardless of the TTL
	// it was stored with in Redis. Zero keeps the caller's TTL.
	MemoryTTL time.Duration
}

// WithLayeredMemory passes options to the L1 memory cache.
func WithLayeredMemory(opts ...MemoryOption) LayeredOption {
	return func(c *LayeredConfig) {
		c.Memory = append(c.Memory, opts...)
	}
}

// WithLayeredMemoryTTL caps L1 entry lifetime.
func WithLayeredMemoryTTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		c.MemoryTTL = ttl
	}
}
