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

package orchestrator

// Kind classifies an Outcome.
type Kind int

const (
	// KindSuccess means the requested action was performed.
	KindSuccess Kind = iota
	// KindNoop means nothing needed doing.
	KindNoop
	// KindDenied means the caller is not allowed to run the command.
	KindDenied
	// KindConflict means an exclusive operation is already running.
	KindConflict
	// KindError means the command failed.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNoop:
		return "noop"
	case KindDenied:
		return "denied"
	case KindConflict:
		return "conflict"
	case KindError:
		return "error"
	}
	return "unknown"
}

// OK reports whether the outcome is not a failure.
func (k Kind) OK() bool {
	return k == KindSuccess || k == KindNoop
}

// Outcome is the user-facing result of a command. Errors never cross the
// orchestrator boundary; they are rendered into an Outcome.
type Outcome struct {
	Kind      Kind
	Message   string
	RequestID string
}

// Caller identifies who issued a command.
type Caller struct {
	GuildID string
	User    string

	// RoleNames are the names of the caller's roles in the guild.
	RoleNames []string
	// GuildRoles are the names of all roles that exist in the guild.
	GuildRoles []string
	// CanManageRoles reports the caller's Manage Roles permission.
	CanManageRoles bool

	// Trusted callers (the local CLI) skip the admin role check.
	Trusted bool
}

func (c Caller) hasRole(name string) bool {
	for _, r := range c.RoleNames {
		if r == name {
			return true
		}
	}
	return false
}

func (c Caller) guildHasRole(name string) bool {
	for _, r := range c.GuildRoles {
		if r == name {
			return true
		}
	}
	return false
}
