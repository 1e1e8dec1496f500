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
/*
Package controller wires minecontrol's components to real infrastructure.

A Controller owns the guild database, the chat session, the RCON client and
the tmux adapter, and hands them to the orchestrator. The CLI builds one per
command; `minecontrol serve` builds one and calls Start, which runs:

  - the Discord gateway and slash-command handler
  - the auto-shutdown engine
  - the Prometheus /metrics endpoint
  - the configuration file watcher

until the context is cancelled.
*/
package controller
