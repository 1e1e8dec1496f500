// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrOwned is returned by AcquireOwner when another process holds the lock.
var ErrOwned = errors.New("owned by another minecontrol process")

// OwnerLock makes one process the owner of the starting flag and the
// backup guard.
type OwnerLock struct {
	lock *flock.Flock
}

// AcquireOwner takes the exclusive lock at path without blocking.
// It fails if another minecontrol process holds it.
func AcquireOwner(path string) (*OwnerLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrOwned)
	}
	return &OwnerLock{lock: lock}, nil
}

// Release unlocks the owner lock.
func (l *OwnerLock) Release() error {
	return l.lock.Unlock()
}
