package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DescriptorExt = ".dzi"
	TilesSuffix   = "_files"
)

// CheckInput fails unless path names an existing file or directory.
func CheckInput(path string) error {
	if path == "" {
		return fmt.Errorf("input path required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("Path '%s' does not exist.", path)
		}
		return fmt.Errorf("cannot access '%s': %w", path, err)
	}
	return nil
}

// OutputBase drops the last extension of path, so "out.dzi" becomes "out".
// The pyramid writers append their own ".dzi". Trailing separators are
// dropped first; dotfiles and a bare trailing dot are not extensions.
func OutputBase(path string) string {
	if path == "" {
		return path
	}
	path = filepath.Clean(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == "." || ext == name {
		return path
	}
	return strings.TrimSuffix(path, ext)
}

func DescriptorPath(base string) string {
	return base + DescriptorExt
}

func TilesDir(base string) string {
	return base + TilesSuffix
}

// ListLevels returns the level directories written under base+"_files",
// sorted by level number.
func ListLevels(base string) ([]int, error) {
	entries, err := os.ReadDir(TilesDir(base))
	if err != nil {
		return nil, err
	}
	levels := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(entry.Name(), "%d", &n); err != nil {
			continue
		}
		levels = append(levels, n)
	}
	sort.Ints(levels)
	return levels, nil
}
