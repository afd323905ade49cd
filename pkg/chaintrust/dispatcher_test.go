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

package chaintrust

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/eudiw/lote-trust/pkg/anchor"
	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/stretchr/testify/require"
)

func generateRootAndLeaf(t *testing.T) (rootDER, leafDER []byte) {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER, err = x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "test-leaf"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	leafDER, err = x509.CreateCertificate(rand.Reader, leafTmpl, root, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)

	return rootDER, leafDER
}

func parseChain(t *testing.T, der []byte) []*x509.Certificate {
	t.Helper()
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return []*x509.Certificate{cert}
}

func TestPKIXValidatorTrustsChainToKnownRoot(t *testing.T) {
	rootDER, leafDER := generateRootAndLeaf(t)

	matched, err := PKIXValidator{}.ValidateCertificateChain(
		context.Background(), parseChain(t, leafDER),
		[]model.TrustAnchor{{Certificate: model.PKIObject{DER: rootDER}}},
	)
	require.NoError(t, err)
	require.NotNil(t, matched)
}

func TestPKIXValidatorRejectsUnknownRoot(t *testing.T) {
	_, leafDER := generateRootAndLeaf(t)
	otherRootDER, _ := generateRootAndLeaf(t)

	_, err := PKIXValidator{}.ValidateCertificateChain(
		context.Background(), parseChain(t, leafDER),
		[]model.TrustAnchor{{Certificate: model.PKIObject{DER: otherRootDER}}},
	)
	require.Error(t, err)
}

func TestDirectTrustValidatorMatchesExactCertificate(t *testing.T) {
	_, leafDER := generateRootAndLeaf(t)

	matched, err := DirectTrustValidator{}.ValidateCertificateChain(
		context.Background(), parseChain(t, leafDER),
		[]model.TrustAnchor{{Certificate: model.PKIObject{DER: leafDER}}},
	)
	require.NoError(t, err)
	require.NotNil(t, matched)
}

func TestDirectTrustValidatorRejectsNonMatchingCertificate(t *testing.T) {
	_, leafDER := generateRootAndLeaf(t)
	rootDER, _ := generateRootAndLeaf(t)

	_, err := DirectTrustValidator{}.ValidateCertificateChain(
		context.Background(), parseChain(t, leafDER),
		[]model.TrustAnchor{{Certificate: model.PKIObject{DER: rootDER}}},
	)
	require.Error(t, err)
}

// fakeSource is a fixed anchor.Source used to exercise Dispatcher routing
// without involving pkg/anchor's provisioning pipeline.
type fakeSource struct {
	contexts []model.Purpose
	anchors  map[model.Purpose][]model.TrustAnchor
}

func (f fakeSource) SupportedContexts() []model.Purpose { return f.contexts }

func (f fakeSource) GetTrustAnchors(_ context.Context, purpose model.Purpose) anchor.QueryResult {
	a, ok := f.anchors[purpose]
	if !ok || len(a) == 0 {
		return anchor.NotFound()
	}
	return anchor.Found(a)
}

func TestDispatcherRoutesPKIXPurposeToPKIXValidator(t *testing.T) {
	rootDER, leafDER := generateRootAndLeaf(t)
	src := fakeSource{
		contexts: []model.Purpose{model.PIDPurpose},
		anchors:  map[model.Purpose][]model.TrustAnchor{model.PIDPurpose: {{Certificate: model.PKIObject{DER: rootDER}}}},
	}

	d := NewDispatcher(src, map[model.Purpose]bool{}, PKIXValidator{}, DirectTrustValidator{})
	outcome := d.IsChainTrustedForContext(context.Background(), parseChain(t, leafDER), model.PIDPurpose)
	require.True(t, outcome.Supported())
	require.True(t, outcome.Trusted())
}

func TestDispatcherRoutesDirectTrustPurposeToDirectTrustValidator(t *testing.T) {
	_, leafDER := generateRootAndLeaf(t)
	src := fakeSource{
		contexts: []model.Purpose{model.PIDPurpose},
		anchors:  map[model.Purpose][]model.TrustAnchor{model.PIDPurpose: {{Certificate: model.PKIObject{DER: leafDER}}}},
	}

	d := NewDispatcher(src, map[model.Purpose]bool{model.PIDPurpose: true}, PKIXValidator{}, DirectTrustValidator{})
	outcome := d.IsChainTrustedForContext(context.Background(), parseChain(t, leafDER), model.PIDPurpose)
	require.True(t, outcome.Trusted())
}

func TestDispatcherReturnsUnsupportedForUnknownPurpose(t *testing.T) {
	d := NewDispatcher(fakeSource{}, map[model.Purpose]bool{}, PKIXValidator{}, DirectTrustValidator{})
	outcome := d.IsChainTrustedForContext(context.Background(), nil, model.PIDPurpose)
	require.False(t, outcome.Supported())
}

func TestDispatcherRejectsEmptyChainAsInvalidInput(t *testing.T) {
	src := fakeSource{contexts: []model.Purpose{model.PIDPurpose}, anchors: map[model.Purpose][]model.TrustAnchor{}}
	d := NewDispatcher(src, map[model.Purpose]bool{}, PKIXValidator{}, DirectTrustValidator{})

	outcome := d.IsChainTrustedForContext(context.Background(), nil, model.PIDPurpose)
	require.True(t, outcome.Supported())
	require.False(t, outcome.Trusted())
	var invalid *InvalidInput
	require.ErrorAs(t, outcome.Cause(), &invalid)
}

func TestDispatcherReportsNotTrustedWhenNoAnchorsFound(t *testing.T) {
	_, leafDER := generateRootAndLeaf(t)
	src := fakeSource{contexts: []model.Purpose{model.PIDPurpose}, anchors: map[model.Purpose][]model.TrustAnchor{}}
	d := NewDispatcher(src, map[model.Purpose]bool{}, PKIXValidator{}, DirectTrustValidator{})

	outcome := d.IsChainTrustedForContext(context.Background(), parseChain(t, leafDER), model.PIDPurpose)
	require.True(t, outcome.Supported())
	require.False(t, outcome.Trusted())
}
