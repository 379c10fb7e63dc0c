package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Daemon is set when running as the HTTP server.
var Daemon bool = false

// (default: $XDG_DATA_HOME/craft-keeper, override with CRAFT_KEEPER_HOME)
var LauncherDir string = GetLauncherDir()

/**
 * Get launcher home directory path
 * @returns {string} Returns launcher directory path
 */
func GetLauncherDir() string {
	if dir := os.Getenv("CRAFT_KEEPER_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, "craft-keeper")
}

// Directory layout under a cache root.
const (
	LibrariesDir = "libraries"
	NativesDir   = "natives"
	AssetsDir    = "assets"
	VersionsDir  = "versions"
	InstancesDir = "instances"
	LogsDir      = "logs"
)
