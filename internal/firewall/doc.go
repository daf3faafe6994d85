// Package firewall compiles zone definitions into iptables-restore documents.
//
// # Overview
//
// Zones group devices and subnets under three default policies (input,
// forward, output). The compiler derives the chains each zone needs, the
// rules inside them, and on reconfiguration which previously created chains
// must be flushed and deleted. Documents are applied with
// iptables-restore --noflush so unrelated chains are left alone.
//
// # Architecture
//
//	zone sections → LoadZones → Registry → Compiler → RestoreBuilder → Manager → iptables-restore
//
// # Key Types
//
//   - [Zone]: one validated zone plus its derived target set
//   - [TargetSet]: the targets a zone needs chains for
//   - [Registry]: configured zones and the subset currently running
//   - [Compiler]: emits chain declarations, rules and teardown passes
//   - [RestoreBuilder]: line builder for iptables-restore batch input
//   - [Manager]: applies documents and persists the running state
//
// # Running State
//
// A zone is configured once loaded and running once a chain or rule was
// emitted for it. The targets materialised by the last applied document
// are kept separately from the configured ones (RunningFlags versus
// Flags) so a reload can tear down what is live while the configuration
// already describes something else.
//
// Custom chains (input_<zone>_rule and friends) belong to the
// administrator. They are created once, never re-declared while running,
// and deleted only by a full stop.
//
// # Teardown
//
// Stop runs two passes per table: the first flushes every running chain so
// no rule references another, the second deletes them. A zone leaves the
// running registry once no table of any family holds its chains.
package firewall
