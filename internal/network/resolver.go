// Package network resolves logical network names to devices.
//
// # Resolvers
//
//   - [StaticResolver]: the network blocks of the configuration file
//   - [LinkResolver]: the kernel link table via netlink, matching the
//     network name against link aliases first and link names second
//   - [ChainResolver]: tries several resolvers in order
//
// Netlink calls cannot be cancelled, so [LinkResolver] runs each lookup
// in its own goroutine and gives up when the context is done.
package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/vishvananda/netlink"
)

// ErrNotResolved is returned when no device carries the network.
var ErrNotResolved = errors.New("network not resolved")

// Netlinker is the subset of netlink used for resolution.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkByAlias(alias string) (netlink.Link, error)
}

// RealNetlinker calls the kernel.
type RealNetlinker struct{}

func (RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (RealNetlinker) LinkByAlias(alias string) (netlink.Link, error) {
	return netlink.LinkByAlias(alias)
}

// StaticResolver maps network names to devices from configuration.
type StaticResolver map[string]string

// ResolveDevice returns the configured device of network.
func (r StaticResolver) ResolveDevice(_ context.Context, network string) (string, error) {
	if dev, ok := r[network]; ok && dev != "" {
		return dev, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotResolved, network)
}

// LinkResolver resolves networks against the kernel link table.
type LinkResolver struct {
	nl Netlinker
}

// NewLinkResolver creates a resolver. A nil Netlinker uses the kernel.
func NewLinkResolver(nl Netlinker) *LinkResolver {
	if nl == nil {
		nl = RealNetlinker{}
	}
	return &LinkResolver{nl: nl}
}

type lookupResult struct {
	name string
	err  error
}

// ResolveDevice finds the link whose alias, or failing that whose name,
// equals network.
func (r *LinkResolver) ResolveDevice(ctx context.Context, network string) (string, error) {
	done := make(chan lookupResult, 1)
	go func() {
		done <- r.lookup(network)
	}()

	select {
	case res := <-done:
		return res.name, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("resolve %s: %w", network, ctx.Err())
	}
}

func (r *LinkResolver) lookup(network string) lookupResult {
	if link, err := r.nl.LinkByAlias(network); err == nil && link != nil {
		return lookupResult{name: link.Attrs().Name}
	}
	link, err := r.nl.LinkByName(network)
	if err != nil || link == nil {
		return lookupResult{err: fmt.Errorf("%w: %s", ErrNotResolved, network)}
	}
	return lookupResult{name: link.Attrs().Name}
}

// Resolver is implemented by every resolver in this package.
type Resolver interface {
	ResolveDevice(ctx context.Context, network string) (string, error)
}

// ChainResolver tries each resolver in order and returns the first hit.
type ChainResolver []Resolver

// ResolveDevice returns the first successful resolution. Context errors
// stop the chain.
func (c ChainResolver) ResolveDevice(ctx context.Context, network string) (string, error) {
	for _, r := range c {
		dev, err := r.ResolveDevice(ctx, network)
		if err == nil {
			return dev, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotResolved, network)
}
