// bgeninspect prints a BGEN file's header, its index metadata, the first
// samples and the genotype distributions of the first variants, as gtsample
// would read them. Use it to check sample ploidy before sampling.
package main

import (
	"flag"
	"fmt"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/gtsample/bgen"
	"github.com/carbocation/pfx"
	log "github.com/sirupsen/logrus"
)

func main() {
	path := flag.String("bgen", "", "Filename of the bgen file to process")
	idxPath := flag.String("bgi", "", "Filename of the bgi (index) file to process. Optional")
	nSamples := flag.Int("samples", 10, "Number of samples to print")
	nVariants := flag.Int("variants", 5, "Number of variants to print")
	flag.Parse()

	if *path == "" {
		flag.PrintDefaults()
		log.Fatalln("No bgen file found")
	}

	for _, p := range []*string{path, idxPath} {
		if strings.HasPrefix(*p, "~/") {
			usr, err := user.Current()
			if err != nil {
				log.Fatalln(pfx.Err(err))
			}
			*p = filepath.Join(usr.HomeDir, (*p)[2:])
		}
	}

	log.Println("Opening bgen:", *path)
	bg, err := bgen.Open(*path)
	if err != nil {
		log.Fatalln(err)
	}
	defer bg.Close()

	log.Printf("BGEN data: %d variants, %d samples, %s, %s\n", bg.NVariants, bg.NSamples, bg.FlagLayout, bg.FlagCompression)

	if *idxPath != "" {
		printIndex(*idxPath)
	}

	samples, err := bgen.ReadSamples(bg)
	if err != nil {
		log.Println(err)
	} else {
		for i, sample := range samples {
			if i >= *nSamples {
				break
			}
			fmt.Println(i, sample.SampleID)
		}
		log.Println("Saw", len(samples), "samples")
	}

	vr := bg.NewVariantReader()
	ploidies := make(map[uint8]int)
	nMissing := 0
	for i := 0; ; i++ {
		v := vr.Read()
		if v == nil {
			break
		}

		for _, sp := range v.Probabilities.SampleProbabilities {
			if sp.Missing {
				nMissing++
				continue
			}
			ploidies[sp.Ploidy]++
		}

		if i >= *nVariants {
			continue
		}

		gv, err := bgen.Genotypes(v)
		if err != nil {
			log.Printf("Variant %d) %s:%d %s: %v\n", i, v.Chromosome, v.Position, v.RSID, err)
			continue
		}
		printVariant(i, gv, *nSamples)
	}

	if vr.Error() != nil {
		log.Fatalln("VR error:", vr.Error())
	}

	other := 0
	for p, n := range ploidies {
		if p != 1 && p != 2 {
			other += n
		}
	}
	log.WithFields(log.Fields{
		"variants": vr.VariantsSeen,
		"haploid":  ploidies[1],
		"diploid":  ploidies[2],
		"other":    other,
		"missing":  nMissing,
	}).Info("sample-variant ploidy counts")
}

func printIndex(idxPath string) {
	bgi, err := bgen.OpenBGI(idxPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer bgi.Close()
	bgi.Metadata.FirstThousandBytes = nil

	log.Printf("BGI Metadata: %+v\n", bgi.Metadata)

	rows, err := bgi.Variants("")
	if err != nil {
		log.Fatalln(err)
	}
	for i, row := range rows {
		if i%30 == 0 {
			fmt.Printf("%d) %+v\n", i, row)
		}
	}
	log.Println("Saw indexes for", len(rows), "variants")
}

func printVariant(i int, v *gtsample.Variant, nSamples int) {
	fmt.Printf("Variant %d) %s %s:%d %v\n", i, v.Label(), v.Chromosome, v.Position, v.Alleles)
	for j, d := range v.Genotypes {
		if j >= nSamples {
			break
		}
		if d.Kind == gtsample.KindMissing {
			fmt.Printf("\t%d) %s\n", j, d.Kind)
			continue
		}
		fmt.Printf("\t%d) %s %v\n", j, d.Kind, d.States())
	}
}
