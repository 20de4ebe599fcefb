package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAddressProviderNormalizes(t *testing.T) {
	p := NewStaticAddressProvider([]string{
		"0xABCDEF1234567890abcdef1234567890ABCDEF12",
		"  0x1111111111111111111111111111111111111111 ",
		"",
	})

	addrs, err := p.Addresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0xabcdef1234567890abcdef1234567890abcdef12",
		"0x1111111111111111111111111111111111111111",
	}, addrs)
}

func TestStaticAddressProviderCopies(t *testing.T) {
	p := NewStaticAddressProvider([]string{"0xabc"})

	first, err := p.Addresses(context.Background())
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := p.Addresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, second)
}
