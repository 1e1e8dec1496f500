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

package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// guildLimiter applies a per-guild command rate limit.
type guildLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newGuildLimiter(perMinute int) *guildLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &guildLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// allow reports whether guildID may run another command now.
func (g *guildLimiter) allow(guildID string) bool {
	g.mu.Lock()
	l, ok := g.limiters[guildID]
	if !ok {
		l = rate.NewLimiter(g.limit, g.burst)
		g.limiters[guildID] = l
	}
	g.mu.Unlock()
	return l.Allow()
}
