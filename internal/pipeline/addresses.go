package pipeline

import (
	"context"
	"strings"
)

// StaticAddressProvider serves a fixed tracked-address roster from
// configuration. Addresses are normalized to lowercase once at construction.
type StaticAddressProvider struct {
	addresses []string
}

// NewStaticAddressProvider creates a provider for the given roster.
func NewStaticAddressProvider(addresses []string) *StaticAddressProvider {
	normalized := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			normalized = append(normalized, a)
		}
	}
	return &StaticAddressProvider{addresses: normalized}
}

// Addresses returns the configured roster.
func (p *StaticAddressProvider) Addresses(ctx context.Context) ([]string, error) {
	out := make([]string, len(p.addresses))
	copy(out, p.addresses)
	return out, nil
}
