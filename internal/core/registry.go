package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// The registry maps module IDs to their ModuleInfo. IDs are namespaced
// dot-separated names: "memory.store" owns the knowledge store,
// "gateway.http" and "rpc.mcp" are the dispatcher surfaces, "cron.scheduler"
// the job runner, "table.sqlite" the table service, "mirror.pull",
// "fs.proxy", and "obs.tracing" the remaining services.
var (
	modules   = make(map[string]ModuleInfo)
	modulesMu sync.RWMutex
)

// RegisterModule registers a module by instantiating it to read its ModuleInfo.
// It panics if a module with the same ID is already registered or if the
// module info is invalid. Intended to be called from init() functions;
// cmd/knowd pulls every module package in with blank imports.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()

	id := string(info.ID)
	if _, exists := modules[id]; exists {
		panic(fmt.Sprintf("module already registered: %s", id))
	}
	modules[id] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[id]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	return sortedByID(slices.Collect(maps.Values(modules)))
}

// GetModulesByNamespace returns all modules in a namespace, sorted by ID.
// The namespace is the segment before the first dot: "memory" matches
// "memory.store" but not "memory" itself.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."

	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var result []ModuleInfo
	for id, info := range modules {
		if strings.HasPrefix(id, prefix) {
			result = append(result, info)
		}
	}
	return sortedByID(result)
}

func sortedByID(infos []ModuleInfo) []ModuleInfo {
	slices.SortFunc(infos, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]ModuleInfo)
}
