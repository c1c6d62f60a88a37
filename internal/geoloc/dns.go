package geoloc

import (
	"context"
	"net"
	"net/netip"

	"github.com/rotisserie/eris"
)

// DNSResolver resolves hostnames with a net.Resolver.
type DNSResolver struct {
	resolver *net.Resolver
}

// NewDNSResolver creates a DNSResolver. A nil resolver uses net.DefaultResolver.
func NewDNSResolver(r *net.Resolver) *DNSResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &DNSResolver{resolver: r}
}

// ResolveIPv4 implements NameResolver.
func (d *DNSResolver) ResolveIPv4(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := d.resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, eris.Wrapf(err, "geoloc: resolve %s", host)
	}
	if len(addrs) == 0 {
		return nil, eris.Errorf("geoloc: no ipv4 address for %s", host)
	}
	out := make([]netip.Addr, len(addrs))
	for i, a := range addrs {
		out[i] = a.Unmap()
	}
	return out, nil
}
