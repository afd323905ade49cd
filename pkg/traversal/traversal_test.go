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

package traversal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eudiw/lote-trust/pkg/jwtenvelope"
	"github.com/eudiw/lote-trust/pkg/loteload"
	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/profile"
	"github.com/stretchr/testify/require"
)

// fakeResolver accepts any list type, so tests can focus on traversal shape
// rather than profile detail.
type fakeResolver struct{}

func (fakeResolver) ProfileFor(typ model.URI) (profile.Profile, error) {
	return profile.Profile{
		Type:                        typ,
		StatusDeterminationApproach: "approach",
		SchemeCommunityRules:        []model.MultiLanguageURI{{Language: "en", Value: "rule"}},
		SchemeTerritory:             "EU",
		MaxMonthsUntilNextUpdate:    1200,
		ServiceTypeIdentifiers:      map[model.URI]struct{}{"svc": {}},
	}, nil
}

func compactLoTE(t *testing.T, typ string, pointers []wirePointer) string {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	payload := jwtPayload{ListOfTrustedEntities: wireLoTE{
		SchemeInformation: wireSchemeInformation{
			Type:                        typ,
			SchemeOperatorAddress:       "address",
			SchemeName:                  "name",
			SchemeInformationURI:        "uri",
			StatusDeterminationApproach: "approach",
			SchemeTypeCommunityRules:    []wireMultiLanguageURI{{Language: "en", Value: "rule"}},
			SchemeTerritory:             "EU",
			PolicyOrLegalNotice:         "notice",
			ListIssueDateTime:           now,
			NextUpdate:                  now,
		},
		PointersToOtherLoTEs: pointers,
	}}

	headerJSON, err := json.Marshal(jwtHeader{Algorithm: "none"})
	require.NoError(t, err)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("sig"))
}

// fakeLoader answers Load from an in-memory map of URI to compact JWT.
type fakeLoader struct {
	content map[model.URI]string
}

func (f fakeLoader) Load(_ context.Context, uri model.URI) (loteload.Outcome, error) {
	c, ok := f.content[uri]
	if !ok {
		return loteload.NotFound(fmt.Errorf("no fixture for %s", uri)), nil
	}
	return loteload.Loaded(c), nil
}

func TestLoadReturnsRootWithNoChildren(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root": compactLoTE(t, "root-type", nil),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 3, MaxLists: 10}}

	res, err := e.Load(context.Background(), "root", "", nil)
	require.NoError(t, err)
	require.Empty(t, res.Children)
	require.Empty(t, res.Problems)
	require.Equal(t, model.URI("root-type"), res.Root.LoTE.SchemeInformation.Type)
}

func TestLoadFollowsPointersUpToMaxDepth(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root":  compactLoTE(t, "root-type", []wirePointer{{Location: "child", ExpectedType: ""}}),
		"child": compactLoTE(t, "child-type", []wirePointer{{Location: "grandchild"}}),
		"grandchild": compactLoTE(t, "grandchild-type", nil),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 1, MaxLists: 10}}

	res, err := e.Load(context.Background(), "root", "", nil)
	require.NoError(t, err)
	require.Len(t, res.Children, 1)
	require.Equal(t, model.URI("child-type"), res.Children[0].LoTE.SchemeInformation.Type)

	foundLimit := false
	for _, p := range res.Problems {
		var limit *TraversalLimitReached
		if errors.As(p.Cause, &limit) && limit.Limit == "maxDepth" {
			foundLimit = true
		}
	}
	require.True(t, foundLimit, "expected a maxDepth TraversalLimitReached problem")
}

func TestLoadDedupesSharedPointer(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root": compactLoTE(t, "root-type", []wirePointer{
			{Location: "shared"},
			{Location: "shared"},
		}),
		"shared": compactLoTE(t, "shared-type", nil),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 2, MaxLists: 10}}

	res, err := e.Load(context.Background(), "root", "", nil)
	require.NoError(t, err)
	require.Len(t, res.Children, 1)
}

func TestLoadEnforcesMaxLists(t *testing.T) {
	content := map[model.URI]string{}
	var pointers []wirePointer
	for i := 0; i < 50; i++ {
		loc := model.URI(fmt.Sprintf("child-%d", i))
		pointers = append(pointers, wirePointer{Location: string(loc)})
		content[loc] = compactLoTE(t, "child-type", nil)
	}
	content["root"] = compactLoTE(t, "root-type", pointers)

	loader := fakeLoader{content: content}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 8, MaxDepth: 1, MaxLists: 40}}

	res, err := e.Load(context.Background(), "root", "", nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(res.Children), 39)

	foundLimit := false
	for _, p := range res.Problems {
		var limit *TraversalLimitReached
		if errors.As(p.Cause, &limit) && limit.Limit == "maxLists" {
			foundLimit = true
		}
	}
	require.True(t, foundLimit, "expected a maxLists TraversalLimitReached problem")
}

func TestLoadContinueOnProblemAlwaysTolerates(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root": compactLoTE(t, "root-type", []wirePointer{{Location: "missing"}, {Location: "ok"}}),
		"ok":   compactLoTE(t, "ok-type", nil),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 1, MaxLists: 10}, OnProblem: Always}

	res, err := e.Load(context.Background(), "root", "", nil)
	require.NoError(t, err)
	require.Len(t, res.Children, 1)
	require.Len(t, res.Problems, 1)
}

func TestLoadContinueOnProblemNeverAborts(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root": compactLoTE(t, "root-type", []wirePointer{{Location: "missing"}}),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 1, MaxLists: 10}, OnProblem: Never}

	_, err := e.Load(context.Background(), "root", "", nil)
	require.Error(t, err)
}

func TestLoadRejectsUnexpectedType(t *testing.T) {
	loader := fakeLoader{content: map[model.URI]string{
		"root": compactLoTE(t, "actual-type", nil),
	}}
	e := &Engine{Loader: loader, Verifier: jwtenvelope.IdentityVerifier{}, Resolver: fakeResolver{}, Constraints: Constraints{OtherLoTEParallelism: 4, MaxDepth: 1, MaxLists: 10}}

	_, err := e.Load(context.Background(), "root", "expected-type", nil)
	require.Error(t, err)
}
