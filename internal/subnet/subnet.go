// Package subnet implements the LAN-to-WAN char-server address rewrite
// table, loaded from "subnet: MASK:CHAR_IP:MAP_IP" configuration lines.
package subnet

import (
	"fmt"
	"net"
	"strings"
)

// Entry is one configured subnet, static for the process lifetime.
type Entry struct {
	Mask        net.IP
	CharServerIP net.IP
	MapServerIP  net.IP
}

// Parse parses one "MASK:CHAR_IP:MAP_IP" value (the part after "subnet: ").
func Parse(value string) (Entry, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("expected MASK:CHAR_IP:MAP_IP, got %q", value)
	}
	mask := net.ParseIP(strings.TrimSpace(parts[0])).To4()
	charIP := net.ParseIP(strings.TrimSpace(parts[1])).To4()
	mapIP := net.ParseIP(strings.TrimSpace(parts[2])).To4()
	if mask == nil || charIP == nil || mapIP == nil {
		return Entry{}, fmt.Errorf("invalid IPv4 literal in %q", value)
	}
	if !sameSubnet(charIP, mapIP, mask) {
		return Entry{}, fmt.Errorf("char_ip and map_ip are not on the same subnet: %q", value)
	}
	return Entry{Mask: mask, CharServerIP: charIP, MapServerIP: mapIP}, nil
}

func sameSubnet(a, b, mask net.IP) bool {
	for i := 0; i < 4; i++ {
		if a[i]&mask[i] != b[i]&mask[i] {
			return false
		}
	}
	return true
}

// Table holds all configured subnet entries and performs the client-IP to
// char-server-IP remap.
type Table struct {
	entries []Entry
}

func NewTable(entries []Entry) *Table {
	return &Table{entries: entries}
}

// Remap scans for the first entry whose CharServerIP shares a subnet with
// clientIP, returning its CharServerIP in place of fallback (the slot's
// recorded public IP) if found.
func (t *Table) Remap(clientIP net.IP, fallback net.IP) net.IP {
	c4 := clientIP.To4()
	if c4 == nil {
		return fallback
	}
	for _, e := range t.entries {
		if sameSubnet(e.CharServerIP, c4, e.Mask) {
			return e.CharServerIP
		}
	}
	return fallback
}
