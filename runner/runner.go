// Package runner drives a gtsample.Sampler over a variant source, writing the
// calls to a sink under one of the two seeding policies.
package runner

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options control the variant loop itself rather than the sampling.
type Options struct {
	// SkipInvalid logs and drops variants rejected with a *gtsample.DataError
	// instead of aborting the run.
	SkipInvalid bool

	// BatchSize is the number of variants read ahead and sampled concurrently
	// under per-variant seeding. Defaults to 64 per thread.
	BatchSize int

	// ProgressEvery logs a progress line every this many variants. Zero
	// disables progress logging.
	ProgressEvery int
}

type Stats struct {
	Read    int
	Written int
	Skipped int
}

type job struct {
	ordinal uint64
	v       *gtsample.Variant
	calls   []gtsample.Call
	err     error
}

type run struct {
	cfg     gtsample.Config
	opts    Options
	sampler *gtsample.Sampler
	src     gtsample.Source
	sink    gtsample.Sink
	log     logrus.FieldLogger
	stats   Stats
	started time.Time

	// processed counts every record handed to emit, written or skipped
	processed int
}

// Run samples every variant of src and writes the calls to sink. The ploidy
// registry is built from cfg for the source's sample order.
//
// With gtsample.SeedShared all variants draw from one stream seeded with
// cfg.Seed, strictly in input order. With gtsample.SeedPerVariant each variant
// draws from its own stream derived from cfg.Seed and its ordinal in the
// input, so the output does not depend on cfg.Threads.
func Run(ctx context.Context, cfg gtsample.Config, src gtsample.Source, sink gtsample.Sink, opts Options, log logrus.FieldLogger) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}

	reg, err := cfg.Registry(src.SampleNames())
	if err != nil {
		return Stats{}, err
	}
	if unmatched := reg.Unmatched(); len(unmatched) > 0 {
		log.WithField("samples", unmatched).Warnf("ignoring ploidy overrides for %d samples not in the input", len(unmatched))
	}

	log.WithFields(logrus.Fields{
		"samples": reg.Len(),
		"diploid": reg.NDiploid(),
		"haploid": reg.NHaploid(),
		"mode":    cfg.Mode,
		"phase":   cfg.Phase,
		"seeding": cfg.Seeding,
		"threads": cfg.Threads,
		"seed":    cfg.Seed,
	}).Info("sampling genotypes")

	r := &run{
		cfg:     cfg,
		opts:    opts,
		sampler: gtsample.NewSampler(reg, cfg.Options()),
		src:     src,
		sink:    sink,
		log:     log,
		started: time.Now(),
	}

	if cfg.Seeding == gtsample.SeedPerVariant {
		err = r.perVariant(ctx)
	} else {
		err = r.shared(ctx)
	}

	log.WithFields(logrus.Fields{
		"read":    r.stats.Read,
		"written": r.stats.Written,
		"skipped": r.stats.Skipped,
		"elapsed": time.Since(r.started).Round(time.Millisecond),
	}).Info("finished")

	return r.stats, err
}

func (r *run) shared(ctx context.Context) error {
	rng := gtsample.NewStream(r.cfg.Seed)
	var calls []gtsample.Call

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := r.src.Read()
		if err == io.EOF {
			return nil
		}
		if err == nil {
			r.stats.Read++
			// A rejected variant draws nothing from rng, so skipping it
			// leaves the calls of every other variant unchanged.
			calls, err = r.sampler.SampleVariantInto(rng, v, calls)
		}
		if err := r.emit(v, calls, err); err != nil {
			return err
		}
	}
}

func (r *run) perVariant(ctx context.Context) error {
	batchSize := r.opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64 * r.cfg.Threads
	}

	var ordinal uint64
	batch := make([]job, 0, batchSize)

	for eof := false; !eof; {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch = batch[:0]
		for len(batch) < batchSize {
			v, err := r.src.Read()
			if err == io.EOF {
				eof = true
				break
			}
			if err == nil {
				r.stats.Read++
			}
			batch = append(batch, job{ordinal: ordinal, v: v, err: err})
			ordinal++
			if err != nil && !r.skippable(err) {
				break
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Threads)
		for i := range batch {
			j := &batch[i]
			if j.err != nil {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				j.calls, j.err = r.sampler.SampleVariant(gtsample.VariantStream(r.cfg.Seed, j.ordinal), j.v)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Emit strictly in input order
		for i := range batch {
			if err := r.emit(batch[i].v, batch[i].calls, batch[i].err); err != nil {
				return err
			}
		}
	}

	return nil
}

// emit writes one sampled variant, or handles the error that prevented it.
func (r *run) emit(v *gtsample.Variant, calls []gtsample.Call, err error) error {
	r.processed++

	if err != nil {
		if !r.skippable(err) {
			return err
		}
		r.stats.Skipped++
		r.log.WithError(err).Warn("skipping variant")
	} else {
		if err := r.sink.Write(v, calls); err != nil {
			return pfx.Err(err)
		}
		r.stats.Written++
	}

	if r.opts.ProgressEvery > 0 && r.processed%r.opts.ProgressEvery == 0 {
		fields := logrus.Fields{
			"processed": r.processed,
			"written":   r.stats.Written,
			"elapsed":   time.Since(r.started).Round(time.Second),
		}
		if v != nil {
			fields["position"] = v.Chromosome + ":" + strconv.FormatUint(uint64(v.Position), 10)
		}
		r.log.WithFields(fields).Info("progress")
	}

	return nil
}

func (r *run) skippable(err error) bool {
	var de *gtsample.DataError
	return r.opts.SkipInvalid && errors.As(err, &de)
}
