package firewall

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"grimm.is/zonefw/internal/validation"
)

func cutInvert(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		return strings.TrimSpace(rest), true
	}
	return s, false
}

// ParseDevice parses an interface name, "!name" or "*".
func ParseDevice(s string) (Device, error) {
	name, invert := cutInvert(s)
	if name == "*" && !invert {
		return Device{Any: true}, nil
	}
	if name == "" || strings.ContainsAny(name, " \t/") {
		return Device{}, fmt.Errorf("invalid device %q", s)
	}
	return Device{Name: name, Invert: invert}, nil
}

// ParseInterface is ParseDevice restricted to names iptables accepts for
// -i and -o.
func ParseInterface(s string) (Device, error) {
	d, err := ParseDevice(s)
	if err != nil || d.Any {
		return d, err
	}
	if err := validation.ValidateInterfaceName(d.Name); err != nil {
		return Device{}, err
	}
	return d, nil
}

// ParseAddress parses "addr", "addr/len", "addr/netmask" or "start-end",
// each optionally prefixed with "!".
func ParseAddress(s string) (Address, error) {
	v, invert := cutInvert(s)

	if start, end, ok := strings.Cut(v, "-"); ok {
		a, err := netip.ParseAddr(start)
		if err != nil {
			return Address{}, fmt.Errorf("invalid range start in %q: %w", s, err)
		}
		b, err := netip.ParseAddr(end)
		if err != nil {
			return Address{}, fmt.Errorf("invalid range end in %q: %w", s, err)
		}
		if a.Is4() != b.Is4() || b.Less(a) {
			return Address{}, fmt.Errorf("invalid range %q", s)
		}
		return Address{
			Family: addrFamily(a),
			Prefix: netip.PrefixFrom(a, a.BitLen()),
			End:    b,
			Invert: invert,
		}, nil
	}

	addr, mask, hasMask := strings.Cut(v, "/")
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}

	bits := a.BitLen()
	if hasMask {
		bits, err = maskBits(a, mask)
		if err != nil {
			return Address{}, fmt.Errorf("invalid mask in %q: %w", s, err)
		}
	}

	p, err := a.Prefix(bits)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Address{Family: addrFamily(a), Prefix: p, Invert: invert}, nil
}

func addrFamily(a netip.Addr) Family {
	if a.Is4() {
		return FamilyV4
	}
	return FamilyV6
}

// maskBits accepts a prefix length or, for IPv4, a dotted netmask.
func maskBits(a netip.Addr, mask string) (int, error) {
	if n, err := strconv.Atoi(mask); err == nil {
		if n < 0 || n > a.BitLen() {
			return 0, fmt.Errorf("prefix length %d out of range", n)
		}
		return n, nil
	}
	m, err := netip.ParseAddr(mask)
	if err != nil || !a.Is4() || !m.Is4() {
		return 0, fmt.Errorf("bad netmask %q", mask)
	}
	b := m.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	bits := 0
	for v&0x80000000 != 0 {
		bits++
		v <<= 1
	}
	if v != 0 {
		return 0, fmt.Errorf("non-contiguous netmask %q", mask)
	}
	return bits, nil
}

// ParseLimit parses "rate[/unit]" where unit is a prefix of second, minute,
// hour or day. A missing unit means per second.
func ParseLimit(s string) (Limit, error) {
	v, invert := cutInvert(s)
	rate, unit, hasUnit := strings.Cut(v, "/")

	n, err := strconv.ParseUint(strings.TrimSpace(rate), 10, 32)
	if err != nil || n == 0 {
		return Limit{}, fmt.Errorf("invalid limit rate in %q", s)
	}

	l := Limit{Rate: uint(n), Invert: invert}
	if !hasUnit {
		return l, nil
	}

	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return Limit{}, fmt.Errorf("invalid limit unit in %q", s)
	}
	for i, name := range limitUnits {
		if strings.HasPrefix(name, unit) {
			l.Unit = LimitUnit(i)
			return l, nil
		}
	}
	return Limit{}, fmt.Errorf("invalid limit unit in %q", s)
}
