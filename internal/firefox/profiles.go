package firefox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/seitenleiste/internal/types"
)

// Dir returns where Firefox keeps profiles.ini for goos, or "" when the
// platform is not supported.
func Dir(goos, home string) string {
	if home == "" {
		return ""
	}
	switch goos {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	}
	return ""
}

// sessionPath returns the session file a seed would read from profileDir.
func sessionPath(profileDir string) (string, bool) {
	for _, name := range sessionFiles {
		p := filepath.Join(profileDir, "sessionstore-backups", name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// ParseProfiles reads profiles.ini from r. Relative paths are resolved
// against dir, and profiles without a session file are left out since there
// is nothing to seed from them.
func ParseProfiles(r io.Reader, dir string) ([]types.Profile, error) {
	var (
		out []types.Profile
		cur *types.Profile
	)
	flush := func() {
		if cur == nil {
			return
		}
		if cur.IsRelative {
			cur.Path = filepath.Join(dir, cur.Path)
		}
		if _, ok := sessionPath(cur.Path); ok && cur.Path != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "["); ok && strings.HasSuffix(name, "]") {
			flush()
			if strings.HasPrefix(name, "Profile") {
				cur = &types.Profile{}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if cur == nil || !ok {
			continue
		}
		switch key {
		case "Name":
			cur.Name = value
		case "Path":
			cur.Path = value
		case "IsRelative":
			cur.IsRelative = value == "1"
		case "Default":
			cur.IsDefault = value == "1"
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read profiles.ini: %w", err)
	}
	flush()
	return out, nil
}

// SelectProfile picks the profile called name, or the default one (falling
// back to the first) when name is empty.
func SelectProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profiles with a session file")
	}
	if name == "" {
		for _, p := range profiles {
			if p.IsDefault {
				return p, nil
			}
		}
		return profiles[0], nil
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return types.Profile{}, fmt.Errorf("profile %q not found", name)
}

// DiscoverProfiles lists the seedable Firefox profiles of the current user.
func DiscoverProfiles() ([]types.Profile, error) {
	home, _ := os.UserHomeDir()
	dir := Dir(runtime.GOOS, home)
	if dir == "" {
		return nil, fmt.Errorf("no Firefox directory known for %s", runtime.GOOS)
	}
	f, err := os.Open(filepath.Join(dir, "profiles.ini"))
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()
	return ParseProfiles(f, dir)
}
