package lyrics

import "container/list"

// lruCache is a small fixed-capacity least-recently-used cache. No LRU
// library appears anywhere in the reference corpus, so this hand-rolled
// container/list-backed implementation is the stdlib fallback for the
// in-process default; infrastructure/lyrics also offers RedisCache for
// multi-instance deployments where a shared cache is worth the dependency.
type lruCache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type lruEntry struct {
	key   string
	value string
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 128
	}
	return &lruCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *lruCache) Get(key string) (string, bool) {
	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) Set(key, value string) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}
