package pipeline

import (
	"context"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

// Diff compares the signatures of two versions of one cluster.
type Diff struct {
	ID       string       `json:"id"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	FromHash string       `json:"from_hash"`
	ToHash   string       `json:"to_hash"`
	Old      ir.Signature `json:"old"`
	New      ir.Signature `json:"new"`
	Breaking bool         `json:"breaking"`

	// Compatible is set when parents wired against From still wire
	// against To. Breaking changes may be compatible.
	Compatible bool `json:"compatible"`
}

// Diff infers both signatures of id. Moving from version from to version to
// is breaking when the signature hashes differ.
func (p *Pipeline) Diff(ctx context.Context, id, from, to string) (*Diff, error) {
	prev, err := p.Signature(ctx, ir.ClusterKey{ID: id, Version: from})
	if err != nil {
		return nil, err
	}
	next, err := p.Signature(ctx, ir.ClusterKey{ID: id, Version: to})
	if err != nil {
		return nil, err
	}
	d := &Diff{
		ID:       id,
		From:     from,
		To:       to,
		FromHash: signature.Hash(prev),
		ToHash:   signature.Hash(next),
		Old:      prev,
		New:      next,
		Breaking: signature.IsBreakingChange(prev, next),

		Compatible: signature.IsWiringCompatible(prev, next),
	}
	return d, nil
}
