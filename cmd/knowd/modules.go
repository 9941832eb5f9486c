package main

// Blank imports register every compiled-in module with the core registry.
import (
	_ "github.com/knowdhq/knowd/internal/cron"
	_ "github.com/knowdhq/knowd/internal/fsproxy"
	_ "github.com/knowdhq/knowd/internal/gateway"
	_ "github.com/knowdhq/knowd/internal/mcpserver"
	_ "github.com/knowdhq/knowd/internal/mirror"
	_ "github.com/knowdhq/knowd/internal/tracing"
	_ "github.com/knowdhq/knowd/modules/memory/inmem"
	_ "github.com/knowdhq/knowd/modules/table/sqlite"
)
