// Copyright 2026 RomFS Authors
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

package util

import (
	"context"
	"time"
)

const (
	defaultPollTimeout  = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// PollConfig bounds a PollUntil wait. Zero fields take the defaults.
type PollConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultPollConfig waits up to 5s, checking every 50ms.
func DefaultPollConfig() PollConfig {
	return PollConfig{Timeout: defaultPollTimeout, Interval: defaultPollInterval}
}

// FastPollConfig checks twice as often, for waits on a local process
// coming up.
func FastPollConfig() PollConfig {
	return PollConfig{Timeout: defaultPollTimeout, Interval: defaultPollInterval / 2}
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultPollTimeout
	}
	if c.Interval <= 0 {
		c.Interval = defaultPollInterval
	}
	return c
}

// PollUntil calls done until it reports true. It returns
// context.DeadlineExceeded once cfg.Timeout has passed, or the context's
// error if ctx ends first.
func PollUntil(ctx context.Context, cfg PollConfig, done func() bool) error {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	for {
		if done() {
			return nil
		}
		t := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
