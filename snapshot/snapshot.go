// Package snapshot implements atomic load/save of an InterlayerMap's
// persisted state to disk, kept separate from imap's pure JSON codec so
// the aggregate root itself has no filesystem dependency: the same
// separation core/rawdb draws between its pure encoding helpers and its
// disk-backed database implementations.
package snapshot

import (
	"errors"
	"os"

	"github.com/solra/onizd/imap"
)

// Load populates m from path, falling back to path+"~" (the prior
// backup) if path is missing, and to an empty map (after Clear) on any
// other failure.
func Load(path string, m *imap.Map, maxObjectSize int) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = os.ReadFile(path + "~")
	}
	if err != nil {
		m.Clear()
		return err
	}
	if err := m.LoadSnapshot(data, maxObjectSize); err != nil {
		m.Clear()
		return err
	}
	return nil
}

// Save serializes m to path+"^" (temp), then renames path to path+"~"
// (ignoring a missing path), then renames path+"^" to path. A crash
// between the two renames leaves the previous good snapshot recoverable
// as path+"~", and a crash before the first rename leaves path
// untouched — atomic publish with at-worst a stale-but-valid fallback.
func Save(path string, m *imap.Map) error {
	data, err := m.MarshalSnapshot()
	if err != nil {
		return err
	}

	tmp := path + "^"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(path, path+"~"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(tmp, path)
}
