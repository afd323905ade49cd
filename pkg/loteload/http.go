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
	"fmt"
	"io"
	"net/http"

	"github.com/eudiw/lote-trust/pkg/model"
	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// HTTPLoader fetches LoTEs over HTTP(S). Status 200 is Loaded, 404 is
// NotFound, and anything else is a TransportError (spec.md §4.C).
type HTTPLoader struct {
	client *retryablehttp.Client
}

// NewHTTPLoader builds an HTTPLoader with sane retry/backoff defaults,
// mirroring the retry posture go-retryablehttp ships with.
func NewHTTPLoader() *HTTPLoader {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.Logger = nil
	return &HTTPLoader{client: client}
}

func (l *HTTPLoader) Load(ctx context.Context, uri model.URI) (Outcome, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, string(uri), nil)
	if err != nil {
		return Outcome{}, &TransportError{URI: uri, Cause: fmt.Errorf("constructing request: %w", err)}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Outcome{}, &TransportError{URI: uri, Cause: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Outcome{}, &TransportError{URI: uri, Cause: fmt.Errorf("reading response body: %w", err)}
		}
		return Loaded(string(body)), nil
	case http.StatusNotFound:
		return NotFound(fmt.Errorf("%s returned 404", uri)), nil
	default:
		return Outcome{}, &TransportError{URI: uri, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}
