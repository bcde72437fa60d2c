/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/obsync-sh/obsync/obslog"
)

// Store guards a ReloadableConfig behind an atomic pointer so HTTP handlers
// can read the current value without ever blocking on a reload in flight.
type Store struct {
	v atomic.Pointer[ReloadableConfig]
}

// NewStore wraps an initial value.
func NewStore(initial ReloadableConfig) *Store {
	s := &Store{}
	s.v.Store(&initial)
	return s
}

// Get returns the current value.
func (s *Store) Get() ReloadableConfig {
	return *s.v.Load()
}

// Watch loads the reloadable section from path once when it starts, then
// reloads it whenever the file changes on disk, logging and keeping the
// previous value on a malformed read. It
// runs until stop is closed; callers typically run it in its own goroutine.
func Watch(path string, store *Store, stop <-chan struct{}) error {
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger := obslog.WithComponent("config")
	if rc, err := readReloadable(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ignoring malformed reloadable config")
	} else {
		store.v.Store(&rc)
	}
	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rc, err := readReloadable(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("ignoring malformed reloadable config")
				continue
			}
			store.v.Store(&rc)
			logger.Info().Str("path", path).Msg("reloaded config")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watch error")
		}
	}
}
