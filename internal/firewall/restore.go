package firewall

import (
	"fmt"
	"strings"
)

// RestoreBuilder builds an iptables-restore batch document line by line.
// Lines are kept in call order; a backend replaying them in order
// reconstructs the intended table topology.
type RestoreBuilder struct {
	lines  []string
	family Family
	counts Counts
}

// Counts summarises what a document does.
type Counts struct {
	Chains  int
	Rules   int
	Flushes int
	Deletes int
}

// NewRestoreBuilder creates a builder for one address family.
func NewRestoreBuilder(family Family) *RestoreBuilder {
	return &RestoreBuilder{
		family: family,
		lines:  make([]string, 0, 128),
	}
}

// Family returns the family the document is built for.
func (b *RestoreBuilder) Family() Family {
	return b.family
}

// AddLine appends a raw line.
func (b *RestoreBuilder) AddLine(line string) {
	b.lines = append(b.lines, line)
}

// BeginTable opens a table section.
func (b *RestoreBuilder) BeginTable(t Table) {
	b.AddLine("*" + t.String())
}

// Commit closes the current table section.
func (b *RestoreBuilder) Commit() {
	b.AddLine("COMMIT")
}

// DeclareChain declares (or, with --noflush, empties) a user chain.
func (b *RestoreBuilder) DeclareChain(name string) {
	b.counts.Chains++
	b.AddLine(fmt.Sprintf(":%s - [0:0]", name))
}

// SetPolicy sets the policy of a builtin chain without flushing it.
func (b *RestoreBuilder) SetPolicy(chain, policy string) {
	b.AddLine(fmt.Sprintf(":%s %s [0:0]", chain, policy))
}

// FlushChain removes every rule from a chain.
func (b *RestoreBuilder) FlushChain(name string) {
	b.counts.Flushes++
	b.AddLine("-F " + name)
}

// DeleteChain removes an empty, unreferenced chain.
func (b *RestoreBuilder) DeleteChain(name string) {
	b.counts.Deletes++
	b.AddLine("-X " + name)
}

// AddRule appends a rule to a chain. Empty arguments are skipped.
func (b *RestoreBuilder) AddRule(chain string, args ...string) {
	b.counts.Rules++
	b.AddLine(ruleLine("-A", chain, args))
}

// DeleteRule removes the first rule matching the specification.
func (b *RestoreBuilder) DeleteRule(chain string, args ...string) {
	b.AddLine(ruleLine("-D", chain, args))
}

func ruleLine(op, chain string, args []string) string {
	var sb strings.Builder
	sb.WriteString(op)
	sb.WriteByte(' ')
	sb.WriteString(chain)
	for _, a := range args {
		if a == "" {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	return sb.String()
}

// Counts returns the running totals.
func (b *RestoreBuilder) Counts() Counts {
	return b.counts
}

// Lines returns the lines emitted so far.
func (b *RestoreBuilder) Lines() []string {
	return b.lines
}

// Len returns the number of lines emitted so far.
func (b *RestoreBuilder) Len() int {
	return len(b.lines)
}

// Build returns the complete document.
func (b *RestoreBuilder) Build() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

func (b *RestoreBuilder) String() string {
	return b.Build()
}
