// Copyright 2022 The Sigstore Authors.
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

package loteload

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/eudiw/lote-trust/pkg/model"
)

// FileLoader reads LoTEs from the local filesystem, for offline/testing use.
// URIs of the form "file://<path>" and bare paths are both accepted.
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, uri model.URI) (Outcome, error) {
	path := strings.TrimPrefix(string(uri), "file://")

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		return Loaded(string(content)), nil
	case errors.Is(err, os.ErrNotExist):
		return NotFound(err), nil
	default:
		return Outcome{}, &TransportError{URI: uri, Cause: err}
	}
}
