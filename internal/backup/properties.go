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

package backup

import (
	"errors"
	"os"

	"github.com/magiconair/properties"
)

// DefaultLevelName is the world directory used when server.properties does
// not name one.
const DefaultLevelName = "world"

// LevelName reads level-name from the server.properties file at path.
// A missing or unreadable file yields DefaultLevelName.
func LevelName(path string) (string, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultLevelName, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return DefaultLevelName, nil
		}
		return DefaultLevelName, err
	}
	name := p.GetString("level-name", DefaultLevelName)
	if name == "" {
		return DefaultLevelName, nil
	}
	return name, nil
}
