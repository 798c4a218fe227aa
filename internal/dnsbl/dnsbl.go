// Package dnsbl implements the DNS-blacklist check: for each configured
// zone, resolve reverse(ip).zone; any resolvable hostname is a hit. No
// third-party DNS client library fit this narrow a lookup, so this uses
// plain net.Resolver.
package dnsbl

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Checker is the pluggable DNSBL collaborator.
type Checker interface {
	IsListed(ctx context.Context, ip net.IP) bool
}

// Resolver checks ip against a fixed list of DNSBL zones using the
// standard resolver.
type Resolver struct {
	Zones   []string
	Timeout time.Duration
}

func New(zones []string) *Resolver {
	return &Resolver{Zones: zones, Timeout: 2 * time.Second}
}

func (r *Resolver) IsListed(ctx context.Context, ip net.IP) bool {
	if len(r.Zones) == 0 {
		return false
	}
	reversed := reverseIPv4(ip)
	if reversed == "" {
		return false
	}
	for _, zone := range r.Zones {
		qctx, cancel := context.WithTimeout(ctx, r.Timeout)
		host := fmt.Sprintf("%s.%s", reversed, zone)
		_, err := net.DefaultResolver.LookupHost(qctx, host)
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

func reverseIPv4(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		return ""
	}
	parts := strings.Split(v4.String(), ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

var _ Checker = (*Resolver)(nil)
