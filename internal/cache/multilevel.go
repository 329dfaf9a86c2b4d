package cache

import "time"

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	DeletePattern(pattern string) error
	Exists(key string) (bool, error)
}

// MultiLevelCache fronts redis with an in-process level. The redis level
// is optional; with a nil L2 the cache degrades to memory only.
type MultiLevelCache struct {
	l1 *MemoryCache
	l2 *RedisCache
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1: NewMemoryCache(),
		l2: redisCache,
	}
}

func (c *MultiLevelCache) Set(key string, value interface{}, ttl time.Duration) error {
	c.l1.Set(key, value, ttl)

	if c.l2 != nil {
		return c.l2.Set(key, value, ttl)
	}
	return nil
}

func (c *MultiLevelCache) Get(key string, dest interface{}) error {
	if err := c.l1.Get(key, dest); err == nil {
		return nil
	}

	if c.l2 != nil {
		err := c.l2.Get(key, dest)
		if err == nil {
			// Short L1 TTL; redis stays authoritative.
			c.l1.Set(key, dest, 5*time.Minute)
		}
		return err
	}

	return ErrCacheMiss
}

func (c *MultiLevelCache) Delete(key string) error {
	c.l1.Delete(key)

	if c.l2 != nil {
		return c.l2.Delete(key)
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(pattern string) error {
	c.l1.DeletePattern(pattern)

	if c.l2 != nil {
		return c.l2.DeletePattern(pattern)
	}
	return nil
}

func (c *MultiLevelCache) Exists(key string) (bool, error) {
	if ok, _ := c.l1.Exists(key); ok {
		return true, nil
	}

	if c.l2 != nil {
		return c.l2.Exists(key)
	}
	return false, nil
}

func (c *MultiLevelCache) Health() error {
	if c.l2 != nil {
		return c.l2.Health()
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
