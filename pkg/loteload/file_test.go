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
	"os"
	"path/filepath"
	"testing"

	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestFileLoaderLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.jwt")
	require.NoError(t, os.WriteFile(path, []byte("header.payload.signature"), 0o600))

	outcome, err := FileLoader{}.Load(context.Background(), model.URI(path))
	require.NoError(t, err)
	require.True(t, outcome.IsFound())
	require.Equal(t, "header.payload.signature", outcome.Content())
}

func TestFileLoaderAcceptsFileScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.jwt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	outcome, err := FileLoader{}.Load(context.Background(), model.URI("file://"+path))
	require.NoError(t, err)
	require.True(t, outcome.IsFound())
}

func TestFileLoaderReturnsNotFoundForMissingFile(t *testing.T) {
	dir := t.TempDir()
	outcome, err := FileLoader{}.Load(context.Background(), model.URI(filepath.Join(dir, "missing.jwt")))
	require.NoError(t, err)
	require.False(t, outcome.IsFound())
	require.Error(t, outcome.NotFoundCause())
}
