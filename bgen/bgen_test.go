package bgen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/carbocation/gtsample"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSample struct {
	ploidy  uint8
	missing bool
	// stored holds the 8-bit Layout2 values, or the three 16-bit Layout1 values
	stored []uint16
}

type testVariant struct {
	id, rsid, chrom string
	pos             uint32
	alleles         []string
	phased          bool
	samples         []testSample
}

type bgenBuilder struct {
	bytes.Buffer
}

func (w *bgenBuilder) u16(v uint16) { binary.Write(w, binary.LittleEndian, v) }
func (w *bgenBuilder) u32(v uint32) { binary.Write(w, binary.LittleEndian, v) }
func (w *bgenBuilder) str16(s string) {
	w.u16(uint16(len(s)))
	w.WriteString(s)
}

func compress(t *testing.T, c Compression, data []byte) []byte {
	t.Helper()
	switch c {
	case CompressionZLIB:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	case CompressionZStandard:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(data, nil)
	}
	return data
}

// buildBGEN writes a complete BGEN file with sample identifiers. Layout2
// probabilities are stored with 8 bits each.
func buildBGEN(t *testing.T, layout Layout, c Compression, names []string, variants []testVariant) []byte {
	t.Helper()

	var samples bgenBuilder
	for _, n := range names {
		samples.str16(n)
	}
	sampleBlockLength := uint32(8 + samples.Len())

	const headerLength = 20
	var f bgenBuilder
	f.u32(headerLength + sampleBlockLength)
	f.u32(headerLength)
	f.u32(uint32(len(variants)))
	f.u32(uint32(len(names)))
	f.WriteString(MagicNumber)
	f.u32(uint32(c) | uint32(layout)<<2 | 1<<31)

	f.u32(sampleBlockLength)
	f.u32(uint32(len(names)))
	f.Write(samples.Bytes())

	for _, v := range variants {
		if layout == Layout1 {
			f.u32(uint32(len(v.samples)))
		}
		f.str16(v.id)
		f.str16(v.rsid)
		f.str16(v.chrom)
		f.u32(v.pos)
		if layout == Layout2 {
			f.u16(uint16(len(v.alleles)))
		}
		for _, a := range v.alleles {
			f.u32(uint32(len(a)))
			f.WriteString(a)
		}

		var g bgenBuilder
		if layout == Layout1 {
			for _, s := range v.samples {
				for _, x := range s.stored {
					g.u16(x)
				}
			}
			if c == CompressionDisabled {
				f.Write(g.Bytes())
				continue
			}
			z := compress(t, c, g.Bytes())
			f.u32(uint32(len(z)))
			f.Write(z)
			continue
		}

		g.u32(uint32(len(v.samples)))
		g.u16(uint16(len(v.alleles)))
		g.WriteByte(1)
		g.WriteByte(2)
		for _, s := range v.samples {
			b := s.ploidy
			if s.missing {
				b |= missingBit
			}
			g.WriteByte(b)
		}
		if v.phased {
			g.WriteByte(1)
		} else {
			g.WriteByte(0)
		}
		g.WriteByte(8)
		for _, s := range v.samples {
			for _, x := range s.stored {
				g.WriteByte(byte(x))
			}
		}

		if c == CompressionDisabled {
			f.u32(uint32(g.Len()))
			f.Write(g.Bytes())
			continue
		}
		z := compress(t, c, g.Bytes())
		f.u32(uint32(len(z) + 4))
		f.u32(uint32(g.Len()))
		f.Write(z)
	}

	return f.Bytes()
}

func chrXVariants() []testVariant {
	return []testVariant{
		{
			id: "chrX:100000139:A:G", rsid: "rs1", chrom: "chrX", pos: 100000139,
			alleles: []string{"A", "G"},
			samples: []testSample{
				{ploidy: 2, stored: []uint16{0, 0}},    // BB
				{ploidy: 2, stored: []uint16{51, 102}}, // 0.2, 0.4, 0.4
				{ploidy: 1, stored: []uint16{255}},     // A
				{ploidy: 2, missing: true, stored: []uint16{0, 0}},
			},
		},
		{
			id: "chrX:100000200:C:T", rsid: "rs2", chrom: "chrX", pos: 100000200,
			alleles: []string{"C", "T"},
			samples: []testSample{
				{ploidy: 2, stored: []uint16{255, 0}},
				{ploidy: 2, stored: []uint16{0, 255}},
				{ploidy: 1, stored: []uint16{0}},
				{ploidy: 2, stored: []uint16{255, 0}},
			},
		},
	}
}

var testNames = []string{"HG00096", "HG00097", "HG00099", "HG00100"}

func TestLayout2Unphased(t *testing.T) {
	for _, c := range []Compression{CompressionDisabled, CompressionZLIB, CompressionZStandard} {
		t.Run(c.String(), func(t *testing.T) {
			b, err := NewFromReaderAt(bytes.NewReader(buildBGEN(t, Layout2, c, testNames, chrXVariants())))
			require.NoError(t, err)
			require.NoError(t, b.Close())

			assert.Equal(t, uint32(2), b.NVariants)
			assert.Equal(t, uint32(4), b.NSamples)
			assert.Equal(t, Layout2, b.FlagLayout)
			assert.Equal(t, c, b.FlagCompression)

			names, err := SampleNames(b)
			require.NoError(t, err)
			assert.Equal(t, testNames, names)

			vr := b.NewVariantReader()
			v := vr.Read()
			require.NoError(t, vr.Error())
			require.NotNil(t, v)

			assert.Equal(t, "chrX:100000139:A:G", v.ID)
			assert.Equal(t, "rs1", v.RSID)
			assert.Equal(t, "chrX", v.Chromosome)
			assert.Equal(t, uint32(100000139), v.Position)
			assert.Equal(t, []Allele{"A", "G"}, v.Alleles)

			p := v.Probabilities
			assert.False(t, p.Phased)
			assert.Equal(t, uint8(8), p.NProbabilityBits)
			assert.InDeltaSlice(t, []float64{0, 0, 1}, p.SampleProbabilities[0].Probabilities, 1e-9)
			assert.InDeltaSlice(t, []float64{0.2, 0.4, 0.4}, p.SampleProbabilities[1].Probabilities, 1e-9)
			assert.InDeltaSlice(t, []float64{1, 0}, p.SampleProbabilities[2].Probabilities, 1e-9)
			assert.Equal(t, uint8(1), p.SampleProbabilities[2].Ploidy)
			assert.True(t, p.SampleProbabilities[3].Missing)

			v2 := vr.Read()
			require.NotNil(t, v2)
			assert.Equal(t, "rs2", v2.RSID)

			assert.Nil(t, vr.Read())
			assert.NoError(t, vr.Error())
			assert.Equal(t, uint32(2), vr.VariantsSeen)
		})
	}
}

func TestLayout2Phased(t *testing.T) {
	variants := []testVariant{{
		id: "v1", rsid: "rs1", chrom: "chrX", pos: 10, alleles: []string{"A", "G"}, phased: true,
		samples: []testSample{
			{ploidy: 2, stored: []uint16{255, 0}}, // hap1 A, hap2 G
			{ploidy: 1, stored: []uint16{0}},      // G
		},
	}}
	b, err := NewFromReaderAt(bytes.NewReader(buildBGEN(t, Layout2, CompressionZLIB, testNames[:2], variants)))
	require.NoError(t, err)

	vr := b.NewVariantReader()
	v := vr.Read()
	require.NoError(t, vr.Error())
	require.True(t, v.Probabilities.Phased)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, v.Probabilities.SampleProbabilities[0].Probabilities, 1e-9)

	gv, err := Genotypes(v)
	require.NoError(t, err)
	assert.Equal(t, gtsample.KindDiploidPhased, gv.Genotypes[0].Kind)
	assert.InDeltaSlice(t, []float64{0, 1, 0, 0}, gv.Genotypes[0].States(), 1e-9)
	assert.Equal(t, gtsample.KindHaploid, gv.Genotypes[1].Kind)
	assert.InDeltaSlice(t, []float64{0, 1}, gv.Genotypes[1].States(), 1e-9)
}

func TestLayout1(t *testing.T) {
	variants := []testVariant{{
		id: "v1", rsid: "rs1", chrom: "01", pos: 1000, alleles: []string{"A", "C"},
		samples: []testSample{
			{stored: []uint16{32768, 0, 0}},
			{stored: []uint16{0, 16384, 16384}},
			{stored: []uint16{0, 0, 0}},
		},
	}}
	for _, c := range []Compression{CompressionDisabled, CompressionZLIB} {
		t.Run(c.String(), func(t *testing.T) {
			b, err := NewFromReaderAt(bytes.NewReader(buildBGEN(t, Layout1, c, testNames[:3], variants)))
			require.NoError(t, err)
			assert.Equal(t, Layout1, b.FlagLayout)

			vr := b.NewVariantReader()
			v := vr.Read()
			require.NoError(t, vr.Error())
			require.NotNil(t, v)
			assert.Equal(t, uint16(2), v.NAlleles)

			sp := v.Probabilities.SampleProbabilities
			assert.InDeltaSlice(t, []float64{1, 0, 0}, sp[0].Probabilities, 1e-9)
			assert.InDeltaSlice(t, []float64{0, 0.5, 0.5}, sp[1].Probabilities, 1e-9)
			assert.True(t, sp[2].Missing)

			assert.Nil(t, vr.Read())
			assert.NoError(t, vr.Error())
		})
	}
}

func TestReadAtOffset(t *testing.T) {
	b, err := NewFromReaderAt(bytes.NewReader(buildBGEN(t, Layout2, CompressionDisabled, testNames, chrXVariants())))
	require.NoError(t, err)

	vr := b.NewVariantReader()
	first := vr.Read()
	second := vr.Read()
	require.NotNil(t, second)

	again := b.NewVariantReader().ReadAt(second.FileStartPosition)
	require.NotNil(t, again)
	assert.Equal(t, second.ID, again.ID)
	assert.Equal(t, int64(b.VariantsStart), first.FileStartPosition)
}

func TestTruncatedFile(t *testing.T) {
	data := buildBGEN(t, Layout2, CompressionDisabled, testNames, chrXVariants())
	b, err := NewFromReaderAt(bytes.NewReader(data[:len(data)-3]))
	require.NoError(t, err)

	vr := b.NewVariantReader()
	require.NotNil(t, vr.Read())
	assert.Nil(t, vr.Read())
	require.Error(t, vr.Error())
	assert.Contains(t, vr.Error().Error(), io.ErrUnexpectedEOF.Error())
}

func TestTruncatedAtBlockBoundary(t *testing.T) {
	// One complete variant block, but the header claims two
	data := buildBGEN(t, Layout2, CompressionDisabled, testNames, chrXVariants()[:1])
	binary.LittleEndian.PutUint32(data[offsetNumberVariants:], 2)

	b, err := NewFromReaderAt(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, uint32(2), b.NVariants)

	src, err := NewSource(b, nil)
	require.NoError(t, err)

	_, err = src.Read()
	require.NoError(t, err)

	_, err = src.Read()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.Contains(t, err.Error(), io.ErrUnexpectedEOF.Error())
	assert.Contains(t, err.Error(), "header lists 2 variants")
}

func TestBadMagicNumber(t *testing.T) {
	data := buildBGEN(t, Layout2, CompressionDisabled, testNames, chrXVariants())
	copy(data[offsetMagicNumber:], "nope")

	_, err := NewFromReaderAt(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestSourceFeedsSampler(t *testing.T) {
	b, err := NewFromReaderAt(bytes.NewReader(buildBGEN(t, Layout2, CompressionZStandard, testNames, chrXVariants())))
	require.NoError(t, err)

	src, err := NewSource(b, nil)
	require.NoError(t, err)

	reg, err := gtsample.NewRegistry(src.SampleNames(), map[string]gtsample.Ploidy{"HG00099": gtsample.Haploid}, gtsample.Diploid)
	require.NoError(t, err)
	require.NoError(t, reg.CheckOrder(src.SampleNames()))

	s := gtsample.NewSampler(reg, gtsample.Options{})
	rng := gtsample.NewStream(42)

	var got [][]string
	for {
		v, err := src.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		calls, err := s.SampleVariant(rng, v)
		require.NoError(t, err)

		gts := make([]string, len(calls))
		for i, c := range calls {
			gts[i] = c.String()
		}
		got = append(got, gts)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "1/1", got[0][0])
	assert.Equal(t, "0", got[0][2])
	assert.Equal(t, "./.", got[0][3])
	assert.Equal(t, []string{"0/0", "0/1", "1", "0/0"}, got[1])
}

func TestGenotypesRejectsMultiallelic(t *testing.T) {
	_, err := Genotypes(&Variant{
		ID:            "tri",
		Alleles:       []Allele{"A", "C", "G"},
		Probabilities: &Probability{NAlleles: 3},
	})

	var derr *gtsample.DataError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, -1, derr.SampleIndex)
}

func TestChoose(t *testing.T) {
	for _, tc := range [][3]int{{3, 1, 3}, {2, 1, 2}, {4, 2, 6}, {5, 2, 10}, {6, 3, 20}} {
		assert.Equal(t, tc[2], Choose(tc[0], tc[1]), "Choose(%d, %d)", tc[0], tc[1])
	}
}
