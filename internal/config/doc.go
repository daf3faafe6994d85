// Package config handles HCL configuration parsing.
//
// # Overview
//
// A zonefw configuration file has three kinds of blocks:
//   - defaults: global policies and switches, decoded with gohcl
//   - network "name": maps a logical network to a device
//   - zone: a firewall zone, kept as raw attributes in source order
//
// Zone blocks are not decoded into a struct here. The firewall package
// owns the zone option table and coerces each attribute with the value
// helpers ([AsBool], [AsString], [AsStringList], [AsDuration]) so that a
// malformed option produces a warning instead of failing the load.
//
// # Example
//
//	defaults {
//	  input   = "ACCEPT"
//	  output  = "ACCEPT"
//	  forward = "REJECT"
//	}
//
//	network "lan" {
//	  device = "br-lan"
//	}
//
//	zone {
//	  name    = "lan"
//	  network = ["lan"]
//	  input   = "ACCEPT"
//	}
package config
