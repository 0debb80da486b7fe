package main

import (
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/gtsample"
	"github.com/carbocation/gtsample/bgen"
	"github.com/carbocation/gtsample/vcf"
	"github.com/carbocation/pfx"
	log "github.com/sirupsen/logrus"
)

type input struct {
	BGEN       string
	BGI        string
	Chromosome string
	VCF        string
}

type source interface {
	gtsample.Source
	io.Closer
}

// closers closes everything in reverse order of opening.
type closers []func() error

func (c closers) Close() error {
	var first error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type bgenSource struct {
	*bgen.Source
	closers
}

func (in input) open(ctx context.Context) (source, error) {
	if in.VCF != "" {
		if in.Chromosome != "" || in.BGI != "" {
			return nil, &gtsample.ConfigError{Field: "chromosome", Msg: "-chromosome and -bgi only apply to -bgen input"}
		}
		log.Println("Opening vcf:", in.VCF)
		src, err := vcf.Open(in.VCF)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	var cl closers
	fail := func(err error) (source, error) {
		cl.Close()
		return nil, err
	}

	var client *storage.Client
	if strings.HasPrefix(in.BGEN, "gs://") || strings.HasPrefix(in.BGI, "gs://") {
		var err error
		if client, err = storage.NewClient(ctx); err != nil {
			return nil, pfx.Err(err)
		}
		cl = append(cl, client.Close)
	}

	log.Println("Opening bgen:", in.BGEN)
	var b *bgen.BGEN
	var err error
	if strings.HasPrefix(in.BGEN, "gs://") {
		b, err = bgen.OpenGoogleStorage(ctx, in.BGEN, client)
	} else {
		b, err = bgen.Open(in.BGEN)
	}
	if err != nil {
		return fail(err)
	}
	cl = append(cl, b.Close)
	log.WithFields(log.Fields{
		"variants":    b.NVariants,
		"samples":     b.NSamples,
		"layout":      b.FlagLayout,
		"compression": b.FlagCompression,
	}).Info("bgen header")

	if in.Chromosome == "" && in.BGI == "" {
		src, err := bgen.NewSource(b, nil)
		if err != nil {
			return fail(err)
		}
		return &bgenSource{Source: src, closers: cl}, nil
	}

	idxPath := in.BGI
	if idxPath == "" {
		idxPath = in.BGEN + ".bgi"
	}
	if strings.HasPrefix(idxPath, "gs://") {
		// SQLite needs a local file
		local, err := downloadIndex(ctx, idxPath, client)
		if err != nil {
			return fail(err)
		}
		cl = append(cl, func() error { return os.Remove(local) })
		idxPath = local
	}

	bgi, err := bgen.OpenBGI(idxPath)
	if err != nil {
		return fail(err)
	}
	cl = append(cl, bgi.Close)

	idx, err := bgi.Variants(in.Chromosome)
	if err != nil {
		return fail(err)
	}
	log.Printf("Index lists %d variants on chromosome %q\n", len(idx), in.Chromosome)

	src, err := bgen.NewIndexedSource(b, nil, idx)
	if err != nil {
		return fail(err)
	}
	return &bgenSource{Source: src, closers: cl}, nil
}

func downloadIndex(ctx context.Context, path string, client *storage.Client) (string, error) {
	f, err := os.CreateTemp("", "gtsample-*.bgi")
	if err != nil {
		return "", pfx.Err(err)
	}
	defer f.Close()

	log.Println("Downloading index:", path)
	if err := bgen.DownloadGoogleStorage(ctx, path, client, f); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}
