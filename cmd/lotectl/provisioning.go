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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eudiw/lote-trust/internal/loggingctx"
	"github.com/eudiw/lote-trust/pkg/anchor"
	"github.com/eudiw/lote-trust/pkg/config"
	"github.com/eudiw/lote-trust/pkg/jwtenvelope"
	"github.com/eudiw/lote-trust/pkg/loteload"
	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/traversal"
	"go.uber.org/zap"
)

// defaultCreateTrustAnchors turns every x509 certificate named in a
// service's digital identity into its own, unconstrained TrustAnchor.
func defaultCreateTrustAnchors(id model.ServiceDigitalIdentity) []model.TrustAnchor {
	out := make([]model.TrustAnchor, 0, len(id.X509Certificates))
	for _, cert := range id.X509Certificates {
		out = append(out, model.TrustAnchor{Certificate: cert})
	}
	return out
}

// provision loads configPath, runs ProvisionTrustAnchorsFromLoTEs, and
// returns the resulting Lookup alongside the problems the run tolerated.
func provision(ctx context.Context) (*anchor.Lookup, []*traversal.Problem, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	doc, err := config.Load(raw)
	if err != nil {
		return nil, nil, err
	}

	logger, _ := zap.NewProduction()
	ctx = loggingctx.ToContext(ctx, logger.Sugar())

	loader := loteload.NewHTTPLoader()
	lookup, problems, err := anchor.ProvisionTrustAnchorsFromLoTEs(
		ctx,
		doc.ToRoots(),
		mustMeta(doc),
		doc.ToConstraints(),
		loader,
		jwtenvelope.JOSEVerifier{},
		defaultCreateTrustAnchors,
		doc.OnProblemPolicy(),
	)
	if err != nil {
		return nil, nil, err
	}
	return lookup, problems, nil
}

func mustMeta(doc *config.Document) model.SupportedLists[model.LoTEMeta] {
	meta, err := doc.ToMeta()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid families config:", err)
		os.Exit(1)
	}
	return meta
}
