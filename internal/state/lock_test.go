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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "minecontrol.lock")

	first, err := AcquireOwner(path)
	require.NoError(t, err)

	_, err = AcquireOwner(path)
	assert.ErrorIs(t, err, ErrOwned, "second owner must be refused")

	require.NoError(t, first.Release())

	again, err := AcquireOwner(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
