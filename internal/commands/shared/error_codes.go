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

package shared

// Error codes for structured JSON output
const (
	ErrorCodeInvalidConfig = "E201" // Configuration could not be loaded
	ErrorCodeDenied        = "E301" // Caller lacks the admin role
	ErrorCodeConflict      = "E302" // Exclusive operation already running
	ErrorCodeLocked        = "E303" // State directory owned by another process
	ErrorCodeFailed        = "E403" // Command failed
)

// mapExitErrorToCode maps ExitError codes to JSON error codes
func mapExitErrorToCode(exitErr *ExitError) string {
	if exitErr == nil {
		return ""
	}

	switch exitErr.Code {
	case ExitInvalidConfig:
		return ErrorCodeInvalidConfig
	case ExitDenied:
		return ErrorCodeDenied
	case ExitConflict:
		return ErrorCodeConflict
	case ExitLocked:
		return ErrorCodeLocked
	default:
		return ErrorCodeFailed
	}
}
