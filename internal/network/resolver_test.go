package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"grimm.is/zonefw/internal/testutil"
)

func dummy(name string) netlink.Link {
	return &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name}}
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"lan": "br-lan", "empty": ""}

	dev, err := r.ResolveDevice(context.Background(), "lan")
	require.NoError(t, err)
	assert.Equal(t, "br-lan", dev)

	_, err = r.ResolveDevice(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrNotResolved)

	_, err = r.ResolveDevice(context.Background(), "wan")
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestLinkResolver_Alias(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByAlias", "wan").Return(dummy("eth1"), nil)

	dev, err := NewLinkResolver(nl).ResolveDevice(context.Background(), "wan")
	require.NoError(t, err)
	assert.Equal(t, "eth1", dev)
	nl.AssertNotCalled(t, "LinkByName", mock.Anything)
}

func TestLinkResolver_NameFallback(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByAlias", "eth0").Return(nil, errors.New("no such alias"))
	nl.On("LinkByName", "eth0").Return(dummy("eth0"), nil)

	dev, err := NewLinkResolver(nl).ResolveDevice(context.Background(), "eth0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", dev)
	nl.AssertExpectations(t)
}

func TestLinkResolver_NotFound(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByAlias", "guest").Return(nil, errors.New("no such alias"))
	nl.On("LinkByName", "guest").Return(nil, errors.New("Link not found"))

	_, err := NewLinkResolver(nl).ResolveDevice(context.Background(), "guest")
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestLinkResolver_Timeout(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByAlias", "slow").After(200*time.Millisecond).Return(dummy("eth9"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewLinkResolver(nl).ResolveDevice(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChainResolver(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByAlias", "dmz").Return(dummy("eth2"), nil)

	chain := ChainResolver{StaticResolver{"lan": "br-lan"}, NewLinkResolver(nl)}

	dev, err := chain.ResolveDevice(context.Background(), "lan")
	require.NoError(t, err)
	assert.Equal(t, "br-lan", dev)

	dev, err = chain.ResolveDevice(context.Background(), "dmz")
	require.NoError(t, err)
	assert.Equal(t, "eth2", dev)

	_, err = ChainResolver{StaticResolver{}}.ResolveDevice(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestLinkResolver_Kernel(t *testing.T) {
	testutil.RequireVM(t)

	r := NewLinkResolver(nil)
	dev, err := r.ResolveDevice(context.Background(), "lo")
	require.NoError(t, err)
	assert.Equal(t, "lo", dev)

	_, err = r.ResolveDevice(context.Background(), "zonefw-missing0")
	assert.ErrorIs(t, err, ErrNotResolved)
}
