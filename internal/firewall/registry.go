package firewall

import "errors"

// ErrZoneNotFound is returned when a zone lookup fails.
var ErrZoneNotFound = errors.New("zone not found")

var customMarkers = NewTargetSet(TargetCustomChainsV4, TargetCustomChainsV6)

// Registry owns the configured zones, in configuration order, and the
// subset currently materialised in the live rule set.
type Registry struct {
	configured []*Zone
	running    []*Zone
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a validated zone to the configured collection.
func (r *Registry) Add(z *Zone) {
	r.configured = append(r.configured, z)
}

// Zones returns the configured zones in configuration order.
func (r *Registry) Zones() []*Zone {
	return r.configured
}

// Running returns the zones currently materialised.
func (r *Registry) Running() []*Zone {
	return r.running
}

// IsRunning reports whether z is linked into the running collection.
func (r *Registry) IsRunning(z *Zone) bool {
	for _, rz := range r.running {
		if rz == z {
			return true
		}
	}
	return false
}

// Lookup scans the configured zones for name. With running set, the zone
// must also be linked into the running collection.
func (r *Registry) Lookup(name string, running bool) (*Zone, error) {
	for _, z := range r.configured {
		if z.Name != name {
			continue
		}
		if !running || r.IsRunning(z) {
			return z, nil
		}
		break
	}
	return nil, ErrZoneNotFound
}

func (r *Registry) lookupConfigured(name string) *Zone {
	for _, z := range r.configured {
		if z.Name == name {
			return z
		}
	}
	return nil
}

// promote links z into the running collection and marks table/family as
// materialised. The zone's targets are staged for the next commit; only
// the custom-chain marker of family is taken.
func (r *Registry) promote(z *Zone, table Table, family Family) {
	z.Running.Add(table, family)
	z.emitted = z.emitted.Union(z.Flags.Without(customMarkers))
	if custom := CustomChainsFor(family); z.Flags.Has(custom) {
		z.emitted.Add(custom)
	}
	if !r.IsRunning(z) {
		r.running = append(r.running, z)
	}
}

// demote unlinks z from the running collection.
func (r *Registry) demote(z *Zone) {
	for i, rz := range r.running {
		if rz == z {
			r.running = append(r.running[:i:i], r.running[i+1:]...)
			return
		}
	}
}

// CommitRunning folds the targets emitted since the last commit into the
// running flags of every running zone. Zones that were not emitted keep
// their flags. Old targets are dropped only once every family built from
// them has been torn down; custom-chain markers outlive that until their
// chains are deleted. Call it once the emitted document has been applied.
func (r *Registry) CommitRunning() {
	for _, z := range r.running {
		base := z.RunningFlags
		if z.stale.Empty() {
			base = base.Intersect(customMarkers)
		}
		z.RunningFlags = base.Union(z.emitted)
		z.emitted = 0
		z.stale = z.Running.Families()
	}
}

// RunningRecord is the persisted form of one running zone.
type RunningRecord struct {
	Name    string
	Flags   TargetSet
	Running Materialized
}

// Snapshot returns the running collection in persistable form.
func (r *Registry) Snapshot() []RunningRecord {
	out := make([]RunningRecord, 0, len(r.running))
	for _, z := range r.running {
		out = append(out, RunningRecord{Name: z.Name, Flags: z.RunningFlags, Running: z.Running})
	}
	return out
}

// Restore links previously persisted running zones. Records naming a
// configured zone attach to it; the rest become running-only zones so a
// later teardown can remove their chains.
func (r *Registry) Restore(records []RunningRecord) {
	for _, rec := range records {
		if rec.Running.Empty() {
			continue
		}
		z := r.lookupConfigured(rec.Name)
		if z == nil {
			z = &Zone{Name: rec.Name}
		}
		z.RunningFlags = rec.Flags
		z.Running = rec.Running
		z.stale = rec.Running.Families()
		if !r.IsRunning(z) {
			r.running = append(r.running, z)
		}
	}
}
