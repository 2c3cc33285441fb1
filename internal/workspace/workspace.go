// Package workspace locates and bootstraps the .boardsync workspace.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boardsync/boardsync/internal/config"
	"github.com/boardsync/boardsync/internal/registry"
	"github.com/boardsync/boardsync/internal/store"
)

// MarkerDir is the directory that marks a workspace root.
const MarkerDir = ".boardsync"

// DBFile is the SQLite database file name inside the marker directory.
const DBFile = "board.db"

// Workspace describes a located workspace.
type Workspace struct {
	// Root is the directory containing the marker directory.
	Root string

	// Marker is Root/.boardsync.
	Marker string

	// BoardsDir is the resolved boards directory.
	BoardsDir string

	// DBPath is the resolved database path.
	DBPath string

	Config *config.Config
}

// Find walks up from dir looking for the workspace marker. Returns an error
// suitable for direct display when no workspace is found.
func Find(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for cur := abs; ; cur = filepath.Dir(cur) {
		marker := filepath.Join(cur, MarkerDir)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return load(cur, marker)
		}
		if filepath.Dir(cur) == cur {
			return nil, fmt.Errorf("not in a boardsync workspace (no %s directory found)", MarkerDir)
		}
	}
}

func load(root, marker string) (*Workspace, error) {
	cfg, err := config.Load(marker)
	if err != nil {
		return nil, err
	}

	boardsDir := cfg.BoardsDir
	if !filepath.IsAbs(boardsDir) {
		boardsDir = filepath.Join(root, boardsDir)
	}

	return &Workspace{
		Root:      root,
		Marker:    marker,
		BoardsDir: boardsDir,
		DBPath:    filepath.Join(marker, DBFile),
		Config:    cfg,
	}, nil
}

// CheckReady verifies the pieces a sync run needs exist before any lease
// attempt: the boards directory and the database file. These are the fatal
// startup conditions; nothing has been mutated when they fire.
func (ws *Workspace) CheckReady() error {
	if _, err := os.Stat(ws.BoardsDir); os.IsNotExist(err) {
		return fmt.Errorf("boards directory missing: %s", ws.BoardsDir)
	}
	if _, err := os.Stat(ws.DBPath); os.IsNotExist(err) {
		return fmt.Errorf("store missing: %s (run 'bsync init')", ws.DBPath)
	}
	return nil
}

// Init bootstraps a workspace at root: marker directory, boards directory,
// default config and registry, database schema, and the sync-state
// singleton. Idempotent - existing files are left alone.
func Init(root string) (*Workspace, error) {
	marker := filepath.Join(root, MarkerDir)
	if err := os.MkdirAll(marker, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", marker, err)
	}

	cfgPath := config.WritePath(marker)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfgPath, []byte(config.DefaultContent), 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	regPath := filepath.Join(marker, "projects.toml")
	if _, err := os.Stat(regPath); os.IsNotExist(err) {
		if err := os.WriteFile(regPath, []byte(registry.DefaultContent), 0644); err != nil {
			return nil, fmt.Errorf("failed to write default registry: %w", err)
		}
	}

	ws, err := load(root, marker)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(ws.BoardsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create boards directory: %w", err)
	}

	db, err := store.Open(ws.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		return nil, err
	}

	return ws, nil
}

// RegistryPath returns the projects.toml location for this workspace.
func (ws *Workspace) RegistryPath() string {
	return filepath.Join(ws.Marker, "projects.toml")
}
