package core

import "strings"

// ModuleID uniquely identifies a module. IDs are namespaced with dots,
// e.g. "memory.store", "gateway.http", "rpc.mcp", "table.sqlite".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	s := string(id)
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// Name returns the part of the ID after the first dot.
func (id ModuleID) Name() string {
	s := string(id)
	if i := strings.Index(s, "."); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique, namespaced module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements.
// Modules opt into lifecycle phases by implementing Configurable,
// Provisioner, Validator, Starter, or Stopper.
type Module interface {
	ModuleInfo() ModuleInfo
}
