package main

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/gtsample/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inputVCF = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=GP,Number=G,Type=Float,Description="Genotype posteriors">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2	S3
chrX	100	rs1	A	G	.	.	.	GT:GP	0/0:1,0,0	1:0,1	1/1:0,0,1
chrX	200	rs2	C	T	.	.	.	GT	0|1	0	./.
`

func TestExpandHome(t *testing.T) {
	got, err := expandHome("/data/x.bgen")
	require.NoError(t, err)
	assert.Equal(t, "/data/x.bgen", got)

	usr, err := user.Current()
	require.NoError(t, err)
	got, err = expandHome("~/x.bgen")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "x.bgen"), got)
}

func TestSampleVCF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.vcf")
	require.NoError(t, os.WriteFile(in, []byte(inputVCF), 0o644))

	ploidy := filepath.Join(dir, "ploidy.txt")
	require.NoError(t, os.WriteFile(ploidy, []byte("S1\t2\nS2\t1\nS3\t2\n"), 0o644))

	cfg := gtsample.DefaultConfig()
	overrides, err := readPloidyFile(ploidy)
	require.NoError(t, err)
	cfg.PloidyOverrides = overrides

	out := filepath.Join(dir, "out.vcf")
	require.NoError(t, sample(context.Background(), cfg, input{VCF: in}, out, runner.Options{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var body []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.HasPrefix(line, "#") {
			body = append(body, line)
		}
	}

	// Every distribution is certain, so the calls do not depend on the seed
	require.Len(t, body, 2)
	assert.Equal(t, "chrX\t100\trs1\tA\tG\t.\t.\t.\tGT\t0/0\t1\t1/1", body[0])
	assert.Equal(t, "chrX\t200\trs2\tC\tT\t.\t.\t.\tGT\t0|1\t0\t./.", body[1])
}

func TestSampleRejectsChromosomeForVCF(t *testing.T) {
	_, err := input{VCF: "x.vcf", Chromosome: "chrX"}.open(context.Background())
	assert.Error(t, err)
}
