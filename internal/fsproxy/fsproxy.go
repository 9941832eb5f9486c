// Package fsproxy serves a read-only view of a configured directory over
// HTTP. Paths are confined to the root; traversal attempts are rejected.
package fsproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
)

func init() {
	core.RegisterModule(&Proxy{})
}

// ErrOutsideRoot is returned for paths that escape the configured root.
var ErrOutsideRoot = errors.New("fsproxy: path escapes root")

const defaultMaxBytes = 4 << 20 // 4 MiB

// Config holds file proxy configuration.
type Config struct {
	Root     string `yaml:"root"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
}

// Proxy is the read-only file proxy module. It registers an http.Handler
// under "fsproxy.handler" for the gateway to mount.
type Proxy struct {
	config Config
	logger *slog.Logger
	root   string
}

// ModuleInfo implements core.Module.
func (p *Proxy) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "fs.proxy",
		New: func() core.Module { return &Proxy{} },
	}
}

// Configure implements core.Configurable.
func (p *Proxy) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Proxy) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	root := p.config.Root
	if root == "" {
		root = ctx.DataDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("fsproxy: resolve root: %w", err)
	}
	p.root = abs

	ctx.RegisterService("fsproxy.handler", http.Handler(p))
	return nil
}

// Validate implements core.Validator.
func (p *Proxy) Validate() error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("fsproxy: root %q: %w", p.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fsproxy: root %q is not a directory", p.root)
	}
	return nil
}

// Start implements core.Starter.
func (p *Proxy) Start() error {
	p.logger.Info("file proxy serving", "root", p.root)
	return nil
}

// Stop implements core.Stopper.
func (p *Proxy) Stop(_ context.Context) error { return nil }

// entry describes one directory child in a listing response.
type entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// ServeHTTP implements http.Handler. Directories list as JSON; files stream
// their content up to the configured size cap.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target, err := p.resolve(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		p.logger.Error("stat failed", "path", target, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		p.serveDir(w, target)
		return
	}
	p.serveFile(w, target, info.Size())
}

// resolve maps a request path onto the root, rejecting escapes.
func (p *Proxy) resolve(reqPath string) (string, error) {
	clean := filepath.Clean("/" + reqPath)
	target := filepath.Join(p.root, clean)

	rel, err := filepath.Rel(p.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return target, nil
}

func (p *Proxy) serveDir(w http.ResponseWriter, dir string) {
	children, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Error("read dir failed", "path", dir, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries := make([]entry, 0, len(children))
	for _, c := range children {
		info, err := c.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{Name: c.Name(), IsDir: c.IsDir(), Size: info.Size()})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (p *Proxy) serveFile(w http.ResponseWriter, path string, size int64) {
	if size > p.config.MaxBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		p.logger.Error("open failed", "path", path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, io.LimitReader(f, p.config.MaxBytes)); err != nil {
		p.logger.Warn("copy failed", "path", path, "error", err)
	}
}
