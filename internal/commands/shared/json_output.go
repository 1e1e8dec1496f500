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

import (
	"encoding/json"
	"errors"
	"io"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError represents a structured error with code, message and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// OutcomeResponse is the JSON form of a command outcome
type OutcomeResponse struct {
	JSONResponse
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// EmitJSON marshals a response to JSON and writes it to w
// This ensures consistent formatting across all commands
func EmitJSON(w io.Writer, response interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError creates and emits a JSON error response for err
func EmitJSONError(w io.Writer, command string, err error) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	jerr := JSONError{Code: ErrorCodeFailed, Message: err.Error()}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		jerr.Code = mapExitErrorToCode(exitErr)
	}
	jerr.Suggestion = suggestionFor(err)

	resp := errorResponse{
		JSONResponse: JSONResponse{
			Version: "1.0",
			Command: command,
			Success: false,
		},
		Errors: []JSONError{jerr},
	}

	return EmitJSON(w, resp)
}
