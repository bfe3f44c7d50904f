package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// Storage and queue backends are fixed at startup; generator availability
// changes when AI settings are updated.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StorageDriver string // "postgres" or "sqlite"
	QueueBackend  string // "redis", "postgres" or "memory"

	generatorAvailable bool
	provider           AIProvider
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storageDriver, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StorageDriver: storageDriver,
		QueueBackend:  queueBackend,
	}
}

// GeneratorAvailable returns whether a content generator is configured
func (c *RuntimeConfig) GeneratorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatorAvailable
}

// Provider returns the active provider, or "" when none is configured
func (c *RuntimeConfig) Provider() AIProvider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider
}

// SetGenerator records the active provider. An empty provider marks the
// generator unavailable.
func (c *RuntimeConfig) SetGenerator(provider AIProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
	c.generatorAvailable = provider != ""
}
