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

// Package traversal implements LoadLoTEAndPointers (spec.md §4.F): a
// bounded, deduplicating, parallel breadth-first fetch of a graph of
// JWT-encoded Lists of Trusted Entities.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eudiw/lote-trust/internal/loggingctx"
	"github.com/eudiw/lote-trust/pkg/jwtenvelope"
	"github.com/eudiw/lote-trust/pkg/loteload"
	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/profile"
	multierror "github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Constraints bounds the traversal (spec.md §4.F).
type Constraints struct {
	OtherLoTEParallelism int // >= 1
	MaxDepth             int // >= 0
	MaxLists             int // >= 1
}

// ContinueOnProblem selects the per-list failure policy (spec.md §4.F).
type ContinueOnProblem int

const (
	// Never aborts the whole traversal at the first error.
	Never ContinueOnProblem = iota
	// Always records every failure as a Problem and continues.
	Always
	// AlwaysIfDownloaded aborts on transport/NotFound errors but tolerates
	// signature/decode/profile failures for lists that were retrievable.
	AlwaysIfDownloaded
)

// TraversalLimitReached is informational: maxLists or maxDepth cut off
// further traversal (spec.md §7 — not fatal).
type TraversalLimitReached struct {
	Limit string // "maxLists" or "maxDepth"
}

func (e *TraversalLimitReached) Error() string {
	return fmt.Sprintf("traversal limit reached: %s", e.Limit)
}

// Problem records one failed pointer during traversal.
type Problem struct {
	Pointer model.Pointer
	Cause   error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Pointer.Location, p.Cause)
}

// Node is one successfully loaded, decoded, and profile-checked LoTE,
// paired with the pointer that led to it.
type Node struct {
	Pointer model.Pointer
	LoTE    model.LoTE
}

// Result is LoadLoTEAndPointers' output (spec.md §4.F).
type Result struct {
	Root     Node
	Children []Node
	Problems []*Problem
}

// jwtPayload is the JSON shape this package decodes LoTEs from (spec.md §6):
// a JWT whose payload carries a single "listOfTrustedEntities" field.
type jwtPayload struct {
	ListOfTrustedEntities wireLoTE `json:"listOfTrustedEntities"`
}

type jwtHeader struct {
	Algorithm string `json:"alg"`
}

// Resolver supplies the per-type profile used to validate a fetched LoTE.
// The signing anchors used to verify its JWT signature come from the
// pointer's ExpectedAnchors, not from the Resolver.
type Resolver interface {
	ProfileFor(typ model.URI) (profile.Profile, error)
}

// Engine runs LoadLoTEAndPointers over a Loader/Verifier pair.
type Engine struct {
	Loader       loteload.Loader
	Verifier     jwtenvelope.Verifier
	Resolver     Resolver
	Constraints  Constraints
	OnProblem    ContinueOnProblem
}

// visitedSet is the traversal's per-invocation shared mutable state
// (spec.md §3 "Lifecycle & ownership", §5 "Shared resources"): the visited
// URIs and the enqueued-list counter, serialized by a single mutex.
type visitedSet struct {
	mu       sync.Mutex
	seen     map[model.URI]bool
	enqueued int
	maxLists int
}

// tryEnqueue returns true iff uri had not been seen and the maxLists budget
// was not yet exhausted; when it returns true it marks uri seen so later
// duplicate references are dropped without error (spec.md §4.F
// "tie-breaking"). A uri refused for lack of budget is not marked seen.
func (v *visitedSet) tryEnqueue(uri model.URI) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[uri] {
		return false
	}
	if v.enqueued >= v.maxLists {
		return false
	}
	v.seen[uri] = true
	v.enqueued++
	return true
}

func (v *visitedSet) atLimit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enqueued >= v.maxLists
}

// Load runs the bounded breadth-first traversal rooted at uri.
func (e *Engine) Load(ctx context.Context, uri model.URI, expectedType model.URI, expectedAnchors []model.PKIObject) (*Result, error) {
	logger := loggingctx.From(ctx)

	vs := &visitedSet{seen: map[model.URI]bool{}, maxLists: e.Constraints.MaxLists}
	rootPointer := model.Pointer{Location: uri, ExpectedType: expectedType, ExpectedAnchors: expectedAnchors}

	if !vs.tryEnqueue(uri) {
		return nil, fmt.Errorf("root uri %s could not be enqueued under maxLists=%d", uri, e.Constraints.MaxLists)
	}

	rootNode, err := e.fetchOne(ctx, rootPointer)
	if err != nil {
		return nil, err
	}

	result := &Result{Root: *rootNode}

	frontier := rootNode.LoTE.PointersToOtherLoTEs
	depth := 0
	for len(frontier) > 0 && depth < e.Constraints.MaxDepth {
		depth++

		// Filter to pointers that win the dedup race before fan-out, so
		// sibling order in the output follows pointer declaration order
		// (spec.md §4.F "sibling order stable").
		var toFetch []model.Pointer
		for _, ptr := range frontier {
			if vs.tryEnqueue(ptr.Location) {
				toFetch = append(toFetch, ptr)
			}
		}

		nodes, probs, err := e.fetchLevel(ctx, toFetch)
		if err != nil {
			return nil, err
		}
		result.Problems = append(result.Problems, probs...)
		result.Children = append(result.Children, nodes...)

		var nextFrontier []model.Pointer
		for _, n := range nodes {
			nextFrontier = append(nextFrontier, n.LoTE.PointersToOtherLoTEs...)
		}
		frontier = nextFrontier
	}

	if len(frontier) > 0 || vs.atLimit() {
		if vs.atLimit() {
			result.Problems = append(result.Problems, &Problem{Cause: &TraversalLimitReached{Limit: "maxLists"}})
		}
		if depth >= e.Constraints.MaxDepth && len(frontier) > 0 {
			result.Problems = append(result.Problems, &Problem{Cause: &TraversalLimitReached{Limit: "maxDepth"}})
		}
	}

	if logger != nil {
		logger.Debugw("traversal complete", "root", uri, "children", len(result.Children), "problems", len(result.Problems))
	}

	return result, nil
}

// fetchLevel fetches all pointers at one BFS depth, up to
// OtherLoTEParallelism concurrently, preserving pointer declaration order
// in the returned slice (spec.md §4.F, §5).
func (e *Engine) fetchLevel(ctx context.Context, pointers []model.Pointer) ([]Node, []*Problem, error) {
	nodes := make([]*Node, len(pointers))
	problems := make([]*Problem, len(pointers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.Constraints.OtherLoTEParallelism))

	for i, ptr := range pointers {
		i, ptr := i, ptr
		g.Go(func() error {
			node, err := e.fetchOne(gctx, ptr)
			if err == nil {
				nodes[i] = node
				return nil
			}
			if e.abortsTraversal(ptr, err) {
				return err
			}
			problems[i] = &Problem{Pointer: ptr, Cause: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var outNodes []Node
	var outProblems []*Problem
	for i := range pointers {
		if nodes[i] != nil {
			outNodes = append(outNodes, *nodes[i])
		}
		if problems[i] != nil {
			outProblems = append(outProblems, problems[i])
		}
	}
	return outNodes, outProblems, nil
}

// abortsTraversal applies the ContinueOnProblem policy (spec.md §4.F).
func (e *Engine) abortsTraversal(_ model.Pointer, err error) bool {
	switch e.OnProblem {
	case Never:
		return true
	case Always:
		return false
	case AlwaysIfDownloaded:
		return isTransportOrNotFound(err)
	default:
		return true
	}
}

func isTransportOrNotFound(err error) bool {
	var transportErr *loteload.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var nf *notFoundError
	return errors.As(err, &nf)
}

// notFoundError marks the explicit "resource absent" outcome as an error
// for uniform treatment in abortsTraversal.
type notFoundError struct {
	Cause error
}

func (e *notFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("not found: %v", e.Cause)
	}
	return "not found"
}

func (e *notFoundError) Unwrap() error { return e.Cause }

// fetchOne performs the four-stage pipeline spec.md §4.F prescribes for a
// single pointer: load -> verify signature -> decode -> profile-check.
func (e *Engine) fetchOne(ctx context.Context, ptr model.Pointer) (*Node, error) {
	outcome, err := e.Loader.Load(ctx, ptr.Location)
	if err != nil {
		return nil, err
	}
	if !outcome.IsFound() {
		return nil, &notFoundError{Cause: outcome.NotFoundCause()}
	}
	compact := outcome.Content()

	anchors := make([][]byte, 0, len(ptr.ExpectedAnchors))
	for _, a := range ptr.ExpectedAnchors {
		anchors = append(anchors, a.DER)
	}
	if e.Verifier != nil {
		if err := e.Verifier.VerifyJwtSignature(ctx, compact, anchors); err != nil {
			return nil, err
		}
	}

	env, err := jwtenvelope.Decode[jwtHeader, jwtPayload](compact)
	if err != nil {
		return nil, err
	}

	lote := env.Payload.ListOfTrustedEntities.toModel()

	if ptr.ExpectedType != "" && lote.SchemeInformation.Type != ptr.ExpectedType {
		return nil, fmt.Errorf("list at %s declares type %s, expected %s", ptr.Location, lote.SchemeInformation.Type, ptr.ExpectedType)
	}

	p, err := e.Resolver.ProfileFor(lote.SchemeInformation.Type)
	if err != nil {
		return nil, err
	}
	if violation := profile.Check(lote, p); violation != nil {
		return nil, violation
	}

	return &Node{Pointer: ptr, LoTE: lote}, nil
}

// ProblemsError turns a Result's problems into a single error via
// go-multierror, for callers of ContinueOnProblem != Never who want every
// contributing cause (spec.md §7 "Propagation").
func ProblemsError(problems []*Problem) error {
	if len(problems) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, p := range problems {
		merr = multierror.Append(merr, p)
	}
	return merr.ErrorOrNil()
}
