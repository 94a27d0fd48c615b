package bridge

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/grandpa-relayer/config"
)

// Registry maps bridge names to bridges built from the config.
type Registry struct {
	bridges map[string]*Bridge
}

// NewRegistry builds every bridge of cfg. The chains of cfg must have been
// built with InitChains. store may be nil.
func NewRegistry(cfg *config.Config, store ProgressStore) (*Registry, error) {
	guardInterval, err := cfg.Global.GuardIntervalDuration()
	if err != nil {
		return nil, err
	}
	r := &Registry{bridges: make(map[string]*Bridge, len(cfg.Bridges))}
	for i := range cfg.Bridges {
		bc := &cfg.Bridges[i]
		source, err := cfg.GetChain(bc.Source)
		if err != nil {
			return nil, errors.Wrapf(err, "bridge %s", bc.Name)
		}
		target, err := cfg.GetChain(bc.Target)
		if err != nil {
			return nil, errors.Wrapf(err, "bridge %s", bc.Name)
		}
		if _, ok := r.bridges[bc.Name]; ok {
			return nil, errors.Newf("duplicate bridge %s", bc.Name)
		}
		r.bridges[bc.Name] = newBridge(bc, source, target, guardInterval, store)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Bridge, error) {
	b, ok := r.bridges[name]
	if !ok {
		return nil, errors.Newf("bridge %s is not configured", name)
	}
	return b, nil
}

// Names returns the sorted names of the bridges.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bridges))
	for name := range r.bridges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Between returns the bridges connecting chains a and b in either direction.
func (r *Registry) Between(a, b string) []*Bridge {
	var out []*Bridge
	for _, name := range r.Names() {
		br := r.bridges[name]
		if (br.Source.Name() == a && br.Target.Name() == b) || (br.Source.Name() == b && br.Target.Name() == a) {
			out = append(out, br)
		}
	}
	return out
}

// Run connects and runs the named bridges, or every bridge if names is empty.
// A stopped bridge does not stop the others. Run returns once every bridge
// stopped, with the joined errors of the failed bridges or ctx.Err().
func (r *Registry) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = r.Names()
	}
	bridges := make([]*Bridge, 0, len(names))
	for _, name := range names {
		b, err := r.Get(name)
		if err != nil {
			return err
		}
		if err := b.Connect(ctx); err != nil {
			return err
		}
		bridges = append(bridges, b)
	}
	var eg errgroup.Group
	errs := make([]error, len(bridges))
	for i, b := range bridges {
		i, b := i, b
		eg.Go(func() error {
			err := b.Run(ctx)
			if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
				return nil
			}
			errs[i] = errors.Wrapf(err, "bridge %s", b.Name())
			return nil
		})
	}
	_ = eg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return ctx.Err()
}
