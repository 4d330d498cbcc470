//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("APPDATA"), "baton")
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "baton", "data")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "baton", "state")
}
