package firewall

import (
	"fmt"
	"strings"
)

// Target is a rule decision, a NAT action or a pseudo-marker tracked per zone.
type Target uint8

const (
	TargetUnspec Target = iota
	TargetAccept
	TargetReject
	TargetDrop
	TargetSrcAccept
	TargetSrcReject
	TargetSrcDrop
	TargetSNAT
	TargetDNAT
	TargetCustomChainsV4
	TargetCustomChainsV6
	TargetNoTrack
	targetCount
)

var targetNames = [targetCount]string{
	TargetUnspec:         "(unspec)",
	TargetAccept:         "ACCEPT",
	TargetReject:         "REJECT",
	TargetDrop:           "DROP",
	TargetSrcAccept:      "SRC_ACCEPT",
	TargetSrcReject:      "SRC_REJECT",
	TargetSrcDrop:        "SRC_DROP",
	TargetSNAT:           "SNAT",
	TargetDNAT:           "DNAT",
	TargetCustomChainsV4: "CUSTOM_CHAINS_V4",
	TargetCustomChainsV6: "CUSTOM_CHAINS_V6",
	TargetNoTrack:        "NOTRACK",
}

// policyTargets are the three decisions a zone policy can take, in emission order.
var policyTargets = []Target{TargetAccept, TargetReject, TargetDrop}

func (t Target) String() string {
	if t < targetCount {
		return targetNames[t]
	}
	return fmt.Sprintf("target(%d)", uint8(t))
}

func (t Target) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// IsPolicy reports whether t is a valid zone policy (accept, reject or drop).
func (t Target) IsPolicy() bool {
	return t >= TargetAccept && t <= TargetDrop
}

// ToSrc maps a destination decision to the same decision taken on the
// origin of a packet. Other targets are returned unchanged.
func ToSrc(t Target) Target {
	if t.IsPolicy() {
		return TargetSrcAccept + (t - TargetAccept)
	}
	return t
}

// FromSrc is the inverse of ToSrc.
func FromSrc(t Target) Target {
	if t >= TargetSrcAccept && t <= TargetSrcDrop {
		return TargetAccept + (t - TargetSrcAccept)
	}
	return t
}

// CustomChainsFor returns the custom-chain marker of a family.
func CustomChainsFor(f Family) Target {
	if f == FamilyV6 {
		return TargetCustomChainsV6
	}
	return TargetCustomChainsV4
}

// jumpTarget is the -j argument for a policy decision; REJECT goes through
// the shared reject chain.
func jumpTarget(t Target) string {
	if t == TargetReject {
		return "reject"
	}
	return t.String()
}

// ParseTarget parses a target option value. Any known target is accepted;
// callers decide whether it is valid where it is used.
func ParseTarget(s string) (Target, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for t := TargetAccept; t < targetCount; t++ {
		if targetNames[t] == u {
			return t, nil
		}
	}
	return TargetUnspec, fmt.Errorf("unknown target %q", s)
}

// TargetSet is a set of targets.
type TargetSet uint32

// NewTargetSet builds a set from its members.
func NewTargetSet(targets ...Target) TargetSet {
	var s TargetSet
	for _, t := range targets {
		s.Add(t)
	}
	return s
}

// Has reports whether t is a member.
func (s TargetSet) Has(t Target) bool {
	return t != TargetUnspec && s&(1<<t) != 0
}

// Add inserts t. TargetUnspec is never stored.
func (s *TargetSet) Add(t Target) {
	if t != TargetUnspec && t < targetCount {
		*s |= 1 << t
	}
}

// Remove deletes t.
func (s *TargetSet) Remove(t Target) {
	*s &^= 1 << t
}

// Union returns s ∪ o.
func (s TargetSet) Union(o TargetSet) TargetSet {
	return s | o
}

// Intersect returns s ∩ o.
func (s TargetSet) Intersect(o TargetSet) TargetSet {
	return s & o
}

// Without returns s with every member of o removed.
func (s TargetSet) Without(o TargetSet) TargetSet {
	return s &^ o
}

// Targets lists the members in declaration order.
func (s TargetSet) Targets() []Target {
	var out []Target
	for t := TargetAccept; t < targetCount; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Names lists the member names.
func (s TargetSet) Names() []string {
	names := []string{}
	for _, t := range s.Targets() {
		names = append(names, t.String())
	}
	return names
}

func (s TargetSet) String() string {
	return strings.Join(s.Names(), ",")
}

func (s TargetSet) MarshalYAML() (interface{}, error) {
	return s.Names(), nil
}

// ParseTargetSet is the inverse of Names.
func ParseTargetSet(names []string) (TargetSet, error) {
	var s TargetSet
	for _, n := range names {
		t, err := ParseTarget(n)
		if err != nil {
			return 0, err
		}
		s.Add(t)
	}
	return s, nil
}
