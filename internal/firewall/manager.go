package firewall

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"grimm.is/zonefw/internal/clock"
	"grimm.is/zonefw/internal/logging"
	"grimm.is/zonefw/internal/metrics"
	"grimm.is/zonefw/internal/state"
)

// Operation names, used as the apply kind and metric label.
const (
	OpStart  = "start"
	OpStop   = "stop"
	OpReload = "reload"
)

// ManagerOptions configures a Manager. Zero values select defaults.
type ManagerOptions struct {
	Runner  CommandRunner
	Store   StateStore
	Metrics *metrics.Registry
	Logger  *logging.Logger
	Clock   clock.Clock
	Retry   *RetryConfig
	// DryRun builds documents without applying, committing or persisting.
	DryRun bool
}

// Result describes one document handled by the manager.
type Result struct {
	ID        uuid.UUID
	Family    Family
	Operation string
	Document  string
	Counts    Counts
	// Skipped is set when there was nothing to apply.
	Skipped bool
}

// Manager applies compiled documents to the live ruleset.
type Manager struct {
	mu       sync.Mutex
	compiler *Compiler
	runner   CommandRunner
	store    StateStore
	metrics  *metrics.Registry
	logger   *logging.Logger
	clock    clock.Clock
	retry    RetryConfig
	dryRun   bool
}

// NewManager creates a manager around a compiler.
func NewManager(compiler *Compiler, opts ManagerOptions) *Manager {
	if opts.Runner == nil {
		opts.Runner = DefaultCommandRunner
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Get()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.DefaultConfig())
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	return &Manager{
		compiler: compiler,
		runner:   opts.Runner,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   opts.Logger.WithComponent("manager"),
		clock:    clock.OrReal(opts.Clock),
		retry:    retry,
		dryRun:   opts.DryRun,
	}
}

// Compiler returns the manager's compiler.
func (m *Manager) Compiler() *Compiler {
	return m.compiler
}

// RestoreState links the persisted running zones into the registry and
// restores the installed families. Without a store it does nothing.
func (m *Manager) RestoreState(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	snap, err := m.store.LoadRunning(ctx)
	if err != nil {
		return fmt.Errorf("load running state: %w", err)
	}
	installed, err := restoreSnapshot(m.compiler.Registry(), snap)
	if err != nil {
		return fmt.Errorf("restore running state: %w", err)
	}
	m.compiler.SetInstalled(installed)
	m.logger.Debug("running state restored", "zones", len(snap.Zones), "installed", snap.Installed)
	return nil
}

// Start brings every configured zone up for each managed family.
func (m *Manager) Start(ctx context.Context) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []*RestoreBuilder
	for _, f := range m.compiler.Defaults().ManagedFamilies() {
		docs = append(docs, m.compiler.Start(f))
	}
	return m.applyAll(ctx, OpStart, docs)
}

// Stop tears running zones down. With reload set, custom chains and the
// base chain hooks are left in place.
func (m *Manager) Stop(ctx context.Context, reload bool) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []*RestoreBuilder
	for _, f := range Families {
		docs = append(docs, m.compiler.Stop(f, reload))
	}
	return m.applyAll(ctx, OpStop, docs)
}

// Reload replaces the running zones with the configured ones. Each
// family's selective stop and start go out as one document.
func (m *Manager) Reload(ctx context.Context) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	managed := FamilySet(0)
	for _, f := range m.compiler.Defaults().ManagedFamilies() {
		managed.Add(f)
	}

	var docs []*RestoreBuilder
	for _, f := range Families {
		if !managed.Has(f) {
			// A family no longer managed is torn down completely.
			docs = append(docs, m.compiler.Stop(f, false))
			continue
		}
		stop := m.compiler.Stop(f, true)
		start := m.compiler.Start(f)
		docs = append(docs, concat(stop, start))
	}
	return m.applyAll(ctx, OpReload, docs)
}

func concat(a, b *RestoreBuilder) *RestoreBuilder {
	out := NewRestoreBuilder(a.Family())
	out.lines = append(append(out.lines, a.lines...), b.lines...)
	out.counts = Counts{
		Chains:  a.counts.Chains + b.counts.Chains,
		Rules:   a.counts.Rules + b.counts.Rules,
		Flushes: a.counts.Flushes + b.counts.Flushes,
		Deletes: a.counts.Deletes + b.counts.Deletes,
	}
	return out
}

// applyAll applies every document in order, then commits and persists the
// running state. A failed document stops the sequence.
func (m *Manager) applyAll(ctx context.Context, op string, docs []*RestoreBuilder) ([]Result, error) {
	var results []Result
	for _, b := range docs {
		res, err := m.apply(ctx, op, b)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	reg := m.compiler.Registry()
	m.metrics.ZonesConfigured.Set(float64(len(reg.Zones())))

	if m.dryRun {
		return results, nil
	}

	reg.CommitRunning()
	m.metrics.ZonesRunning.Set(float64(len(reg.Running())))

	if m.store != nil {
		if err := m.store.SaveRunning(ctx, snapshot(reg, m.compiler.Installed())); err != nil {
			return results, fmt.Errorf("save running state: %w", err)
		}
	}
	return results, nil
}

func (m *Manager) apply(ctx context.Context, op string, b *RestoreBuilder) (Result, error) {
	family := b.Family()
	res := Result{
		ID:        uuid.New(),
		Family:    family,
		Operation: op,
		Document:  b.Build(),
		Counts:    b.Counts(),
	}
	if res.Document == "" {
		res.Skipped = true
		return res, nil
	}

	fam := family.String()
	m.metrics.ChainsEmitted.WithLabelValues(fam, op).Add(float64(res.Counts.Chains))
	m.metrics.RulesEmitted.WithLabelValues(fam, op).Add(float64(res.Counts.Rules))
	m.metrics.ChainsRemoved.WithLabelValues(fam, op).Add(float64(res.Counts.Deletes))

	if m.dryRun {
		m.logger.Info("dry run, document not applied", "family", fam, "operation", op, "lines", b.Len())
		return res, nil
	}

	start := m.clock.Now()
	err := Retry(ctx, m.retry, func() error {
		return classifyRestoreError(m.runner.RunInput(res.Document, family.RestoreCommand(), "--noflush"))
	})
	m.metrics.ApplyDuration.WithLabelValues(fam).Observe(m.clock.Since(start).Seconds())

	if err != nil {
		m.metrics.Applies.WithLabelValues(fam, op, "error").Inc()
		m.logger.Error("apply failed", "family", fam, "operation", op, "error", err)
		return res, fmt.Errorf("%s %s: %w", op, fam, err)
	}

	m.metrics.Applies.WithLabelValues(fam, op, "ok").Inc()
	m.metrics.LastApply.WithLabelValues(fam).Set(float64(m.clock.Now().Unix()))
	m.logger.Info("document applied", "id", res.ID.String(), "family", fam, "operation", op,
		"chains", res.Counts.Chains, "rules", res.Counts.Rules, "deletes", res.Counts.Deletes)

	if m.store != nil {
		_, err := m.store.RecordApply(ctx, state.Apply{
			ID:       res.ID,
			Family:   fam,
			Kind:     op,
			Document: res.Document,
		})
		if err != nil {
			m.logger.Warn("failed to record apply", "id", res.ID.String(), "error", err)
		}
	}
	return res, nil
}

// LastDocument returns the last document that brought a family up.
func (m *Manager) LastDocument(ctx context.Context, family Family) (state.Apply, error) {
	if m.store == nil {
		return state.Apply{}, errors.New("no state store configured")
	}
	return m.store.LastApply(ctx, family.String(), OpStart, OpReload)
}

// Live returns the live ruleset of a family as dumped by iptables-save.
func (m *Manager) Live(family Family) (string, error) {
	out, err := m.runner.Output(family.SaveCommand())
	if err != nil {
		return "", fmt.Errorf("%s: %w", family.SaveCommand(), err)
	}
	return string(out), nil
}
