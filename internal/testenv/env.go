package testenv

import "path/filepath"

// Dirs contains isolated directories for paceguard config/data/cache in tests.
type Dirs struct {
	Base   string
	Config string
	Data   string
	Cache  string
}

// PaceguardDirs returns conventional test directories rooted at base.
func PaceguardDirs(base string) Dirs {
	return Dirs{
		Base:   base,
		Config: filepath.Join(base, "config"),
		Data:   filepath.Join(base, "data"),
		Cache:  filepath.Join(base, "cache"),
	}
}

// ApplyPaceguard sets PACEGUARD_* env vars to isolated test directories.
func ApplyPaceguard(setenv func(string, string), base string) Dirs {
	dirs := PaceguardDirs(base)
	setenv("PACEGUARD_CONFIG_DIR", dirs.Config)
	setenv("PACEGUARD_DATA_DIR", dirs.Data)
	setenv("PACEGUARD_CACHE_DIR", dirs.Cache)
	return dirs
}

// ApplySameDir points config/data/cache to the same directory.
// Useful in tests that expect ConfigDir() to exactly match a temp dir path.
func ApplySameDir(setenv func(string, string), dir string) {
	setenv("PACEGUARD_CONFIG_DIR", dir)
	setenv("PACEGUARD_DATA_DIR", dir)
	setenv("PACEGUARD_CACHE_DIR", dir)
}
