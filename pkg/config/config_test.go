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

package config

import (
	"testing"

	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/traversal"
	"github.com/stretchr/testify/require"
)

const validYAML = `
constraints:
  otherLoteParallelism: 4
  maxDepth: 3
  maxLists: 100
onProblem: always
roots:
  pidProviders: https://example.eu/pid-root.jwt
  eaaProviders:
    mdl: https://example.eu/mdl-root.jwt
families:
  pidProviders:
    directTrust: false
    purposes:
      pid: urn:test:pid:issuance
  eaaProviders/mdl:
    directTrust: true
    purposes:
      eaa: urn:test:mdl:issuance
      eaaStatus: urn:test:mdl:status
`

func TestLoadParsesValidDocument(t *testing.T) {
	doc, err := Load([]byte(validYAML))
	require.NoError(t, err)
	require.Equal(t, 4, doc.Constraints.OtherLoTEParallelism)
	require.Equal(t, "https://example.eu/pid-root.jwt", doc.Roots.PIDProviders)
	require.Equal(t, "https://example.eu/mdl-root.jwt", doc.Roots.EAAProviders["mdl"])
}

func TestLoadRejectsInvalidConstraints(t *testing.T) {
	_, err := Load([]byte(`
constraints:
  otherLoteParallelism: 0
  maxDepth: -1
  maxLists: 0
onProblem: never
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "constraints.otherLoteParallelism")
	require.Contains(t, err.Error(), "constraints.maxDepth")
	require.Contains(t, err.Error(), "constraints.maxLists")
}

func TestLoadRejectsUnknownOnProblem(t *testing.T) {
	_, err := Load([]byte(`
constraints:
  otherLoteParallelism: 1
  maxDepth: 1
  maxLists: 1
onProblem: sometimes
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "onProblem")
}

func TestLoadRejectsUnknownPurposeKey(t *testing.T) {
	_, err := Load([]byte(`
constraints:
  otherLoteParallelism: 1
  maxDepth: 1
  maxLists: 1
onProblem: never
families:
  pidProviders:
    purposes:
      notAPurpose: urn:test:x
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "notAPurpose")
}

func TestLoadRejectsUnknownEAAPurposeKey(t *testing.T) {
	_, err := Load([]byte(`
constraints:
  otherLoteParallelism: 1
  maxDepth: 1
  maxLists: 1
onProblem: never
families:
  eaaProviders/mdl:
    purposes:
      issuance: urn:test:x
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "issuance")
}

func TestDocumentToConstraintsAndOnProblemPolicy(t *testing.T) {
	doc, err := Load([]byte(validYAML))
	require.NoError(t, err)

	require.Equal(t, traversal.Constraints{OtherLoTEParallelism: 4, MaxDepth: 3, MaxLists: 100}, doc.ToConstraints())
	require.Equal(t, traversal.Always, doc.OnProblemPolicy())
}

func TestDocumentToRootsSetsFixedAndEAAFamilies(t *testing.T) {
	doc, err := Load([]byte(validYAML))
	require.NoError(t, err)

	roots := doc.ToRoots()
	require.NotNil(t, roots.PIDProviders)
	require.Equal(t, model.URI("https://example.eu/pid-root.jwt"), *roots.PIDProviders)

	families := roots.Families()
	var sawEAA bool
	for _, f := range families {
		if f.Label == "eaaProviders/mdl" {
			sawEAA = true
			require.Equal(t, model.URI("https://example.eu/mdl-root.jwt"), f.Value)
		}
	}
	require.True(t, sawEAA)
}

func TestDocumentToMetaBuildsFixedAndEAAPurposes(t *testing.T) {
	doc, err := Load([]byte(validYAML))
	require.NoError(t, err)

	meta, err := doc.ToMeta()
	require.NoError(t, err)

	require.NotNil(t, meta.PIDProviders)
	require.Equal(t, model.URI("urn:test:pid:issuance"), meta.PIDProviders.SvcTypePerPurpose[model.PIDPurpose])
	require.False(t, meta.PIDProviders.DirectTrust)

	families := meta.Families()
	var mdl *model.LoTEMeta
	for _, f := range families {
		if f.Label == "eaaProviders/mdl" {
			v := f.Value
			mdl = &v
		}
	}
	require.NotNil(t, mdl)
	require.True(t, mdl.DirectTrust)
	require.Equal(t, model.URI("urn:test:mdl:issuance"), mdl.SvcTypePerPurpose[model.NewEAA("mdl")])
	require.Equal(t, model.URI("urn:test:mdl:status"), mdl.SvcTypePerPurpose[model.NewEAAStatus("mdl")])
}

func TestPurposeKeyRendersFixedAndEAAPurposes(t *testing.T) {
	require.Equal(t, "pid", PurposeKey(model.PIDPurpose))
	require.Equal(t, "eaa:mdl", PurposeKey(model.NewEAA("mdl")))
	require.Equal(t, "eaaStatus:photoid", PurposeKey(model.NewEAAStatus("photoid")))
}
