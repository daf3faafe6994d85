package firewall

import (
	"context"
	"fmt"

	"grimm.is/zonefw/internal/state"
)

// StateStore persists running state and applied documents between runs.
type StateStore interface {
	SaveRunning(ctx context.Context, snap state.Snapshot) error
	LoadRunning(ctx context.Context) (state.Snapshot, error)
	RecordApply(ctx context.Context, a state.Apply) (state.Apply, error)
	LastApply(ctx context.Context, family string, kinds ...string) (state.Apply, error)
}

// snapshot converts the running registry into its stored form.
func snapshot(reg *Registry, installed FamilySet) state.Snapshot {
	var snap state.Snapshot
	for _, rec := range reg.Snapshot() {
		snap.Zones = append(snap.Zones, state.RunningZone{
			Name:   rec.Name,
			Flags:  rec.Flags.Names(),
			Tables: rec.Running.Pairs(),
		})
	}
	for _, f := range installed.List() {
		snap.Installed = append(snap.Installed, f.String())
	}
	return snap
}

// restoreSnapshot links stored running zones into reg and returns the
// installed families.
func restoreSnapshot(reg *Registry, snap state.Snapshot) (FamilySet, error) {
	records := make([]RunningRecord, 0, len(snap.Zones))
	for _, z := range snap.Zones {
		flags, err := ParseTargetSet(z.Flags)
		if err != nil {
			return 0, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		running, err := ParseMaterialized(z.Tables)
		if err != nil {
			return 0, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		records = append(records, RunningRecord{Name: z.Name, Flags: flags, Running: running})
	}

	var installed FamilySet
	for _, name := range snap.Installed {
		f, err := ParseFamily(name)
		if err != nil || f == FamilyAny {
			return 0, fmt.Errorf("installed family %q: invalid", name)
		}
		installed.Add(f)
	}

	reg.Restore(records)
	return installed, nil
}
