package firewall

import (
	"fmt"
	"strings"
)

// Family selects the address family a zone, address or template applies to.
type Family uint8

const (
	FamilyAny Family = iota
	FamilyV4
	FamilyV6
)

// Families lists the concrete families in emission order.
var Families = []Family{FamilyV4, FamilyV6}

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "any"
	}
}

// Matches reports whether something scoped to f applies when emitting for want.
func (f Family) Matches(want Family) bool {
	return f == FamilyAny || f == want
}

// RestoreCommand returns the batch restore binary for the family.
func (f Family) RestoreCommand() string {
	if f == FamilyV6 {
		return "ip6tables-restore"
	}
	return "iptables-restore"
}

// SaveCommand returns the binary dumping the live ruleset of the family.
func (f Family) SaveCommand() string {
	if f == FamilyV6 {
		return "ip6tables-save"
	}
	return "iptables-save"
}

// MarshalYAML renders the family by name.
func (f Family) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// ParseFamily parses a family option value.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "", "any", "all", "*":
		return FamilyAny, nil
	case "ipv4", "inet", "4", "v4":
		return FamilyV4, nil
	case "ipv6", "inet6", "6", "v6":
		return FamilyV6, nil
	}
	return FamilyAny, fmt.Errorf("unknown family %q", s)
}

// FamilySet is a set of concrete families.
type FamilySet uint8

// Has reports whether f is in the set.
func (s FamilySet) Has(f Family) bool {
	return f != FamilyAny && s&(1<<f) != 0
}

// Add inserts f. FamilyAny is ignored.
func (s *FamilySet) Add(f Family) {
	if f != FamilyAny {
		*s |= 1 << f
	}
}

// Remove deletes f.
func (s *FamilySet) Remove(f Family) {
	*s &^= 1 << f
}

// Empty reports whether no family is set.
func (s FamilySet) Empty() bool {
	return s == 0
}

// List returns the members in emission order.
func (s FamilySet) List() []Family {
	var out []Family
	for _, f := range Families {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FamilySet) MarshalYAML() (interface{}, error) {
	names := []string{}
	for _, f := range s.List() {
		names = append(names, f.String())
	}
	return names, nil
}

// Table is one of the packet-filter tables.
type Table uint8

const (
	TableFilter Table = iota
	TableNAT
	TableMangle
	TableRaw
)

var tableNames = [...]string{"filter", "nat", "mangle", "raw"}

func (t Table) String() string {
	if int(t) < len(tableNames) {
		return tableNames[t]
	}
	return fmt.Sprintf("table(%d)", uint8(t))
}

// ParseTable parses a table name.
func ParseTable(s string) (Table, error) {
	for i, n := range tableNames {
		if n == s {
			return Table(i), nil
		}
	}
	return 0, fmt.Errorf("unknown table %q", s)
}

// TablesFor returns the tables processed for a family, in restore order.
// The nat table only exists for IPv4.
func TablesFor(f Family) []Table {
	if f == FamilyV4 {
		return []Table{TableFilter, TableNAT, TableMangle, TableRaw}
	}
	return []Table{TableFilter, TableMangle, TableRaw}
}

// Materialized records which {table, family} pairs have live chains for a zone.
type Materialized uint16

func materializedBit(t Table, f Family) Materialized {
	return 1 << (uint(t)*2 + uint(f-1))
}

// Has reports whether the zone has chains in table t for family f.
func (m Materialized) Has(t Table, f Family) bool {
	return f != FamilyAny && m&materializedBit(t, f) != 0
}

// Add marks table t of family f as materialized.
func (m *Materialized) Add(t Table, f Family) {
	if f != FamilyAny {
		*m |= materializedBit(t, f)
	}
}

// Remove clears table t of family f.
func (m *Materialized) Remove(t Table, f Family) {
	if f != FamilyAny {
		*m &^= materializedBit(t, f)
	}
}

// Families returns every family with at least one materialized table.
func (m Materialized) Families() FamilySet {
	var s FamilySet
	for _, f := range Families {
		for t := TableFilter; t <= TableRaw; t++ {
			if m.Has(t, f) {
				s.Add(f)
			}
		}
	}
	return s
}

// Empty reports whether nothing is materialized.
func (m Materialized) Empty() bool {
	return m == 0
}

// Pairs lists the materialized pairs as "table/family" strings.
func (m Materialized) Pairs() []string {
	var out []string
	for _, f := range Families {
		for t := TableFilter; t <= TableRaw; t++ {
			if m.Has(t, f) {
				out = append(out, t.String()+"/"+f.String())
			}
		}
	}
	return out
}

// ParseMaterialized is the inverse of Pairs.
func ParseMaterialized(pairs []string) (Materialized, error) {
	var m Materialized
	for _, p := range pairs {
		tname, fname, ok := strings.Cut(p, "/")
		if !ok {
			return 0, fmt.Errorf("invalid materialized pair %q", p)
		}
		t, err := ParseTable(tname)
		if err != nil {
			return 0, err
		}
		f, err := ParseFamily(fname)
		if err != nil || f == FamilyAny {
			return 0, fmt.Errorf("invalid materialized pair %q", p)
		}
		m.Add(t, f)
	}
	return m, nil
}

func (m Materialized) MarshalYAML() (interface{}, error) {
	pairs := m.Pairs()
	if pairs == nil {
		pairs = []string{}
	}
	return pairs, nil
}
