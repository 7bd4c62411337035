// Copyright 2026 DevFlow Authors
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

package bootstrap

import (
	"context"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/semver"
)

// pluginLookup adapts persistence.Port into dependency.PluginLookup: the
// highest Available version of name satisfying constraint.
type pluginLookup struct {
	store persistence.Port
}

func (l *pluginLookup) FindAvailable(ctx context.Context, name string, constraint semver.Constraint) (*plugin.Plugin, bool, error) {
	res := l.store.ListPlugins(ctx, persistence.PluginFilter{Status: plugin.StatusAvailable, Search: name})
	if !res.IsOk() {
		return nil, false, res.Error()
	}

	var best *plugin.Plugin
	for _, p := range res.Unwrap() {
		if p.Metadata.Name != name {
			continue
		}
		if !constraint.Match(p.Metadata.Version) {
			continue
		}
		if best == nil || p.Metadata.Version.Compare(best.Metadata.Version) > 0 {
			best = p
		}
	}
	return best, best != nil, nil
}
