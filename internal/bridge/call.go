// SPDX-License-Identifier: MPL-2.0

package bridge

import "context"

// Call evaluates an R expression in the embedded session and returns the
// converted result. Subprocess mode has no session to evaluate in, so every
// expression fails with ErrUnsupportedMode.
func (b *Bridge) Call(ctx context.Context, expr string) (any, error) {
	rt, err := b.Init(ctx)
	if err != nil {
		return nil, err
	}
	if rt.Mode != ModeEmbedded {
		return nil, unsupportedModeError("evaluate R expression")
	}

	b.logger.Debug("evaluating expression", "expr", expr)
	return b.opts.Embedder.Eval(ctx, expr)
}
