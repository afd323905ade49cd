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

// Package loteload implements the LoadLoTE capability (spec.md §4.C): a
// thin I/O adapter from a URI to the raw JWT string of a LoTE.
package loteload

import (
	"context"
	"fmt"

	"github.com/eudiw/lote-trust/pkg/model"
)

// Outcome is the sum Loaded(content) | NotFound(cause). Any other failure
// is returned as a TransportError from Load itself.
type Outcome struct {
	found   bool
	content string
	cause   error
}

// Loaded builds the Loaded(content) outcome.
func Loaded(content string) Outcome { return Outcome{found: true, content: content} }

// NotFound builds the NotFound(cause) outcome. cause may be nil.
func NotFound(cause error) Outcome { return Outcome{found: false, cause: cause} }

// IsFound reports whether this outcome is Loaded.
func (o Outcome) IsFound() bool { return o.found }

// Content returns the loaded JWT string; only meaningful when IsFound.
func (o Outcome) Content() string { return o.content }

// NotFoundCause returns the optional cause attached to a NotFound outcome.
func (o Outcome) NotFoundCause() error { return o.cause }

// TransportError wraps any loader failure that is not an explicit
// "resource absent".
type TransportError struct {
	URI   model.URI
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.URI, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Loader is the LoadLoTE capability. Implementations MUST respect ctx
// cancellation and MUST NOT block a scheduler thread indefinitely.
type Loader interface {
	Load(ctx context.Context, uri model.URI) (Outcome, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context, uri model.URI) (Outcome, error)

func (f LoaderFunc) Load(ctx context.Context, uri model.URI) (Outcome, error) {
	return f(ctx, uri)
}
