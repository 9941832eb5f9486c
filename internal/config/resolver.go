package config

import "slices"

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading. Load order is
// not a dependency order: modules register services during Provision and
// consumers bind lazily at Start, which runs only after every module has
// provisioned.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
