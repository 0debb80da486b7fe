// gtsample draws one discrete genotype per sample per variant from BGEN or
// VCF genotype probabilities, honoring each sample's ploidy, and writes the
// calls as a VCF.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/gtsample/runner"
	"github.com/carbocation/gtsample/vcf"
	"github.com/carbocation/pfx"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}

	var in input
	flag.StringVar(&in.BGEN, "bgen", "", "BGEN file to sample from (local path or gs://)")
	flag.StringVar(&in.BGI, "bgi", "", "Optional .bgi index. Required with -chromosome; defaults to the BGEN path + .bgi")
	flag.StringVar(&in.Chromosome, "chromosome", "", "Only sample variants on this chromosome (needs a .bgi index)")
	flag.StringVar(&in.VCF, "vcf", "", "VCF file (optionally gzipped) with GP or GT fields to sample from")
	samplesFile := flag.String("samples-file", "", "Optional two-column file of sample name and ploidy (1 or 2)")
	defaultPloidy := flag.Uint("default-ploidy", 2, "Ploidy of samples not listed in -samples-file")
	seed := flag.Uint64("seed", 1, "Random seed")
	threads := flag.Int("threads", 1, "Number of variants sampled concurrently. Values above 1 require -seeding=per-variant. 0 uses every CPU with per-variant seeding")
	seeding := flag.String("seeding", "shared", "Seeding policy: 'shared' (one stream across all variants, sequential) or 'per-variant' (one stream per variant, parallelizable)")
	solve := flag.Bool("solve", false, "Emit the most likely genotype instead of sampling")
	unordered := flag.Bool("unordered", false, "Report all diploid calls unphased")
	skipInvalid := flag.Bool("skip-invalid", false, "Log and skip variants with invalid genotype data instead of stopping")
	out := flag.String("out", "-", "Output VCF; '-' for stdout. A .gz suffix compresses the output")
	progress := flag.Int("progress", 100000, "Log progress every this many variants (0 to disable)")
	flag.Parse()

	if (in.BGEN == "") == (in.VCF == "") {
		flag.PrintDefaults()
		log.Fatalln("Exactly one of -bgen or -vcf is required")
	}

	if *defaultPloidy > 2 {
		log.Fatalf("-default-ploidy %d; expected 1 or 2\n", *defaultPloidy)
	}

	cfg := gtsample.DefaultConfig()
	cfg.DefaultPloidy = gtsample.Ploidy(*defaultPloidy)
	cfg.Seed = *seed
	cfg.Threads = *threads
	if *solve {
		cfg.Mode = gtsample.ModeSolve
	}
	if *unordered {
		cfg.Phase = gtsample.PhaseUnordered
	}
	switch *seeding {
	case "shared":
		cfg.Seeding = gtsample.SeedShared
	case "per-variant":
		cfg.Seeding = gtsample.SeedPerVariant
	default:
		log.Fatalf("Unrecognized -seeding %q\n", *seeding)
	}

	var err error
	for _, p := range []*string{&in.BGEN, &in.BGI, &in.VCF, samplesFile, out} {
		if *p, err = expandHome(*p); err != nil {
			log.Fatalln(err)
		}
	}

	if *samplesFile != "" {
		if cfg.PloidyOverrides, err = readPloidyFile(*samplesFile); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Read ploidy for %d samples from %s\n", len(cfg.PloidyOverrides), *samplesFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := sample(ctx, cfg, in, *out, runner.Options{SkipInvalid: *skipInvalid, ProgressEvery: *progress}); err != nil {
		stop()
		log.Fatalln(err)
	}
}

func sample(ctx context.Context, cfg gtsample.Config, in input, outPath string, opts runner.Options) error {
	src, err := in.open(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := vcf.Create(outPath, src.SampleNames(), "source=gtsample", fmt.Sprintf("gtsampleCommand=%s", strings.Join(os.Args[1:], " ")))
	if err != nil {
		return err
	}

	if _, err := runner.Run(ctx, cfg, src, w, opts, log.StandardLogger()); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

func readPloidyFile(path string) (map[string]gtsample.Ploidy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return gtsample.ReadPloidyFile(f)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", pfx.Err(err)
	}
	return filepath.Join(usr.HomeDir, path[2:]), nil
}
