// Package pool manages the process-wide fixed array of P serializers the
// distributor falls back to when no dialog or transaction affinity
// exists, and the synthetic endpoint/auth singletons that must live for
// the same span. Startup and shutdown are symmetric and unwind cleanly
// on partial failure.
package pool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sebas/distributor/internal/serializer"
	"github.com/sebas/distributor/internal/synthetic"
)

// Size is P, the fixed pool size: a small prime, so the hash-bucket
// fallback spreads unrelated conversations evenly.
const Size = 31

const baseName = "pjsip/distributor"

// Pool is the fixed-size serializer array plus the synthetic singletons
// that exist for the same lifetime.
type Pool struct {
	registry *serializer.Registry
	members  [Size]*serializer.Serializer

	Synthetic *synthetic.Pair
}

// Start creates Size serializers with unique generated names, the
// synthetic endpoint and synthetic auth, and returns the assembled Pool.
// On any failure it unwinds everything it had already created and returns
// an error.
func Start(registry *serializer.Registry) (*Pool, error) {
	p := &Pool{registry: registry}

	for i := 0; i < Size; i++ {
		name := fmt.Sprintf("%s-%d-%s", baseName, i, uuid.NewString())
		s, err := registry.Create(name)
		if err != nil {
			p.unwindMembers(i)
			return nil, fmt.Errorf("pool: creating serializer %d: %w", i, err)
		}
		p.members[i] = s
	}

	p.Synthetic = synthetic.New()

	return p, nil
}

func (p *Pool) unwindMembers(created int) {
	for i := 0; i < created; i++ {
		if p.members[i] != nil {
			p.members[i].Release()
			p.members[i] = nil
		}
	}
}

// Bucket returns the pool member at the given DJB2 bucket index, with its
// reference count bumped for the caller.
func (p *Pool) Bucket(idx int) *serializer.Serializer {
	return p.members[idx%Size].Acquire()
}

// Stop releases every pool member concurrently and then the synthetic
// singletons, the symmetric counterpart to Start.
func (p *Pool) Stop(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, s := range p.members {
		s := s
		g.Go(func() error {
			s.Release()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	p.Synthetic.Release()
	return nil
}
