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

// Package plugin models the Plugin aggregate root: its metadata, dependency
// value objects, status machine, and domain events.
package plugin

import (
	"strings"

	"github.com/maxxentropy/devflow/internal/semver"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Language identifies the source language a plugin is authored in.
type Language string

const (
	LanguageManaged    Language = "M"
	LanguageScripted   Language = "S"
	LanguageStandalone Language = "P"
)

func (l Language) Valid() bool {
	switch l {
	case LanguageManaged, LanguageScripted, LanguageStandalone:
		return true
	default:
		return false
	}
}

// Metadata is the immutable descriptive value object for a plugin.
type Metadata struct {
	Name        string
	Version     semver.Version
	Description string
	Language    Language
}

// NewMetadata validates and constructs Metadata.
func NewMetadata(name, version, description string, language Language) result.Result[Metadata] {
	name = strings.TrimSpace(name)
	if name == "" {
		return result.Err[Metadata](result.NewValidation("plugin.metadata.name", "name must not be empty"))
	}
	if !language.Valid() {
		return result.Err[Metadata](result.NewValidation("plugin.metadata.language", "language must be one of M, S, P"))
	}
	v, err := semver.Parse(version)
	if err != nil {
		return result.Err[Metadata](result.NewValidation("plugin.metadata.version", "version must be a valid SemVer triple").Wrap(err))
	}
	return result.Ok(Metadata{
		Name:        name,
		Version:     v,
		Description: description,
		Language:    language,
	})
}
