package template

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

// LookupFailed is rendered in place of an address that could not be resolved.
const LookupFailed = "ERROR xlating hostname to IP"

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// DefaultLookupTimeout bounds each host lookup during rendering.
const DefaultLookupTimeout = 5 * time.Second

// SystemLookup resolves names with the system resolver.
func SystemLookup(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// hostFuncs binds the address helpers to a lookup function.
type hostFuncs struct {
	lookup  LookupFunc
	timeout time.Duration
}

// ipAddress returns the first IPv4 address of host, or "" when it cannot be
// resolved.
func (h hostFuncs) ipAddress(host string) string {
	logger := logging.GetLogger("template")

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	addrs, err := h.lookup(ctx, host)
	if err != nil {
		logger.Error().Err(err).Str("host", host).Msg("Cannot resolve host name")
		return ""
	}

	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr
		}
	}
	if len(addrs) > 0 {
		return addrs[0]
	}
	logger.Error().Str("host", host).Msg("Host name has no addresses")
	return ""
}

// ipAddresses resolves each host, keeping the input order.
func (h hostFuncs) ipAddresses(hosts any) []string {
	names := toStrings(hosts)
	out := make([]string, 0, len(names))
	for _, name := range names {
		addr := h.ipAddress(name)
		if addr == "" {
			addr = LookupFailed
		}
		out = append(out, addr)
	}
	return out
}

// ipSegment returns the address of host without its last octet.
func (h hostFuncs) ipSegment(host string) string {
	addr := h.ipAddress(host)
	if addr == "" {
		return LookupFailed
	}
	if i := strings.LastIndex(addr, "."); i >= 0 {
		return addr[:i]
	}
	return addr
}
