package ingest

import (
	"context"
	"time"

	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/models/photo"
	"github.com/snapmission/photo-services/network"
)

// Resolver turns photo records into client-facing views by attaching
// a time-limited signed read URL to each one. Signing failures
// degrade per item: the failed record keeps a null URL and the rest
// of the batch is unaffected, so a single bad blob can never fail a
// whole list response.
type Resolver struct {
	Objects network.ObjectStore
	Logger  *logging.Logger
	Expiry  time.Duration
}

func NewResolver(ctx *common.Context) *Resolver {
	return &Resolver{
		Objects: ctx.ObjectStore,
		Logger:  ctx.Logger,
		Expiry:  ctx.Config.SignedURLExpiry,
	}
}

// Resolve returns the view for one record. ImageURL is nil when the
// record has no object key yet or when signing fails.
func (r *Resolver) Resolve(ctx context.Context, p *photo.Photo) *photo.View {
	view := &photo.View{Photo: *p}
	if p.ObjectKey == "" {
		return view
	}
	signedURL, err := r.Objects.PresignedGet(ctx, p.ObjectKey, r.Expiry)
	if err != nil {
		SignedURLFailuresTotal.Inc()
		r.Logger.Warningf("Could not sign read URL for %s: %v", p.ObjectKey, err)
		return view
	}
	urlStr := signedURL.String()
	view.ImageURL = &urlStr
	return view
}

// ResolveAll maps Resolve over a batch, isolating per-item failures.
func (r *Resolver) ResolveAll(ctx context.Context, photos []*photo.Photo) []*photo.View {
	views := make([]*photo.View, len(photos))
	for i, p := range photos {
		views[i] = r.Resolve(ctx, p)
	}
	return views
}
