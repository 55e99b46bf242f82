package crawl

import (
	"context"
	"net"
	"sync"

	"github.com/fwojciec/seocrawl"
	"golang.org/x/sync/singleflight"
)

// IPCache resolves hostnames to a single address and remembers the
// answer. Failed lookups are not cached. Concurrent lookups of the same
// host share one resolver call.
type IPCache struct {
	resolver seocrawl.HostResolver

	mu    sync.RWMutex
	addrs map[string]string
	group singleflight.Group
}

// NewIPCache creates an IPCache backed by resolver.
// If resolver is nil, net.DefaultResolver is used.
func NewIPCache(resolver seocrawl.HostResolver) *IPCache {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &IPCache{
		resolver: resolver,
		addrs:    make(map[string]string),
	}
}

// Lookup returns the first address of host.
func (c *IPCache) Lookup(ctx context.Context, host string) (string, error) {
	if host == "" {
		return "", seocrawl.Errorf(seocrawl.EINVALID, "empty host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	c.mu.RLock()
	addr, ok := c.addrs[host]
	c.mu.RUnlock()
	if ok {
		return addr, nil
	}

	v, err, _ := c.group.Do(host, func() (any, error) {
		addrs, err := c.resolver.LookupHost(ctx, host)
		if err != nil {
			return "", err
		}
		if len(addrs) == 0 {
			return "", seocrawl.Errorf(seocrawl.ENOTFOUND, "no addresses for %s", host)
		}
		c.mu.Lock()
		c.addrs[host] = addrs[0]
		c.mu.Unlock()
		return addrs[0], nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Cached returns the remembered address of host without resolving it.
func (c *IPCache) Cached(host string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.addrs[host]
	return addr, ok
}
