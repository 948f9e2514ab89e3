/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bennypowers.dev/ivywatch/poll"
)

// WatchConfig is the file read by the watch command.
type WatchConfig struct {
	Node        poll.Node     `mapstructure:"node"`
	Interval    time.Duration `mapstructure:"interval"`
	StateDir    string        `mapstructure:"state-dir"`
	MetricsAddr string        `mapstructure:"metrics-addr"`
	OnChange    string        `mapstructure:"on-change"`
	Concurrency int           `mapstructure:"concurrency"`
	Jobs        []JobConfig   `mapstructure:"jobs"`
}

// JobConfig is one job of the watch config file.
type JobConfig struct {
	// Kind selects the trigger; it defaults to ivy.
	Kind        string `mapstructure:"kind"`
	poll.Config `mapstructure:",squash"`
}

// LoadWatchConfig decodes and checks the watch configuration held by v.
func LoadWatchConfig(v *viper.Viper) (WatchConfig, error) {
	v.SetDefault("interval", poll.DefaultInterval)
	v.SetDefault("state-dir", DefaultStateDir)

	var cfg WatchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return WatchConfig{}, fmt.Errorf("failed to decode watch config: %w", err)
	}

	var errs []error
	if cfg.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", cfg.Interval))
	}
	if len(cfg.Jobs) == 0 {
		errs = append(errs, errors.New("no jobs configured"))
	}
	seen := make(map[string]bool, len(cfg.Jobs))
	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		if strings.TrimSpace(job.Kind) == "" {
			job.Kind = poll.KindIvy
		}
		if job.Label != "" {
			job.LabelRestriction = true
		}
		if seen[job.Name] {
			errs = append(errs, fmt.Errorf("job %q is configured twice", job.Name))
		}
		seen[job.Name] = true
	}
	if len(errs) > 0 {
		return WatchConfig{}, errors.Join(errs...)
	}
	return cfg, nil
}
