package cmd

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"grimm.is/zonefw/internal/firewall"
	"grimm.is/zonefw/internal/state"
)

type showApply struct {
	ID        string `yaml:"id"`
	Family    string `yaml:"family"`
	Kind      string `yaml:"kind"`
	AppliedAt string `yaml:"applied_at"`
}

type showRunning struct {
	Name   string   `yaml:"name"`
	Flags  []string `yaml:"flags"`
	Tables []string `yaml:"tables"`
}

type showOutput struct {
	Zones     []*firewall.Zone `yaml:"zones"`
	Running   []showRunning    `yaml:"running"`
	Installed []string         `yaml:"installed"`
	History   []showApply      `yaml:"history,omitempty"`
}

// RunShow prints the configured zones, the recorded running state and the
// most recent applies as YAML.
func RunShow(ctx context.Context, o *Options, history int) error {
	o.NoState = false
	e, err := setup(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	// Compiling every family fills in the zones' emitted families.
	c := e.freshCompiler(ctx)
	for _, f := range e.defaults.ManagedFamilies() {
		c.Start(f)
	}

	snap, err := e.store.LoadRunning(ctx)
	if err != nil {
		return fmt.Errorf("load running state: %w", err)
	}

	out := showOutput{
		Zones:     c.Registry().Zones(),
		Running:   make([]showRunning, 0, len(snap.Zones)),
		Installed: snap.Installed,
	}
	for _, z := range snap.Zones {
		out.Running = append(out.Running, showRunning{Name: z.Name, Flags: z.Flags, Tables: z.Tables})
	}

	if history > 0 {
		applies, err := e.store.History(ctx, history)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		out.History = historyEntries(applies)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	_, err = o.stdout().Write(data)
	return err
}

func historyEntries(applies []state.Apply) []showApply {
	entries := make([]showApply, len(applies))
	for i, a := range applies {
		entries[i] = showApply{
			ID:        a.ID.String(),
			Family:    a.Family,
			Kind:      a.Kind,
			AppliedAt: a.AppliedAt.UTC().Format(time.RFC3339),
		}
	}
	return entries
}
