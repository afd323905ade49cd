// Copyright 2024 The Sigstore Authors.
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

// Package loggingctx threads a *zap.SugaredLogger through a context.Context,
// the way pkg/tuf/context.go threads a resync period through the teacher's
// reconciler contexts.
package loggingctx

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

var defaultLogger = zap.NewNop().Sugar()

// ToContext returns a context carrying logger.
func ToContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the logger attached to ctx, or a no-op logger if none was
// attached.
func From(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
		return l
	}
	return defaultLogger
}
