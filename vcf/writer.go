package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/pfx"
	"github.com/klauspost/pgzip"
)

// Writer emits sampled calls as a VCF with a single GT format field. It
// implements gtsample.Sink.
type Writer struct {
	bufw    *bufio.Writer
	gzw     *pgzip.Writer
	file    io.Closer
	nSample int
	line    []byte
}

// Create writes to path, gzip-compressing when it ends in .gz. A path of "-"
// writes to standard output.
func Create(path string, names []string, meta ...string) (*Writer, error) {
	var f io.WriteCloser = os.Stdout
	if path != "-" {
		var err error
		if f, err = os.Create(path); err != nil {
			return nil, pfx.Err(err)
		}
	}

	w := &Writer{nSample: len(names)}
	if strings.HasSuffix(path, ".gz") {
		fileBuf := bufio.NewWriterSize(f, BufferSize)
		w.gzw = pgzip.NewWriter(fileBuf)
		w.bufw = bufio.NewWriterSize(w.gzw, BufferSize)
		w.file = closerFunc(func() error {
			if err := fileBuf.Flush(); err != nil {
				return err
			}
			return f.Close()
		})
	} else {
		w.bufw = bufio.NewWriterSize(f, BufferSize)
		if path != "-" {
			w.file = f
		}
	}

	if err := w.writeHeader(names, meta); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter writes an uncompressed VCF to out. Close flushes but does not
// close out.
func NewWriter(out io.Writer, names []string, meta ...string) (*Writer, error) {
	w := &Writer{
		bufw:    bufio.NewWriterSize(out, BufferSize),
		nSample: len(names),
	}
	if err := w.writeHeader(names, meta); err != nil {
		return nil, err
	}
	return w, nil
}

// writeHeader emits the meta lines (each without the leading "##") and the
// column header.
func (w *Writer) writeHeader(names []string, meta []string) error {
	fmt.Fprintln(w.bufw, "##fileformat=VCFv4.2")
	for _, m := range meta {
		fmt.Fprintf(w.bufw, "##%s\n", m)
	}
	fmt.Fprintln(w.bufw, `##FORMAT=<ID=GT,Number=1,Type=String,Description="Sampled genotype">`)

	_, err := fmt.Fprintf(w.bufw, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t%s\n", strings.Join(names, "\t"))
	return pfx.Err(err)
}

func (w *Writer) Write(v *gtsample.Variant, calls []gtsample.Call) error {
	if len(calls) != w.nSample {
		return pfx.Err(fmt.Errorf("%d calls for %d samples at %s", len(calls), w.nSample, v.Label()))
	}

	id := v.ID
	if id == "" {
		id = v.RSID
	}
	if id == "" {
		id = "."
	}
	ref, alt := ".", "."
	if len(v.Alleles) > 0 {
		ref = v.Alleles[0]
	}
	if len(v.Alleles) > 1 {
		alt = strings.Join(v.Alleles[1:], ",")
	}

	w.line = w.line[:0]
	w.line = append(w.line, v.Chromosome...)
	w.line = append(w.line, '\t')
	w.line = strconv.AppendUint(w.line, uint64(v.Position), 10)
	w.line = append(w.line, '\t')
	w.line = append(w.line, id...)
	w.line = append(w.line, '\t')
	w.line = append(w.line, ref...)
	w.line = append(w.line, '\t')
	w.line = append(w.line, alt...)
	w.line = append(w.line, "\t.\t.\t.\tGT"...)
	for _, c := range calls {
		w.line = append(w.line, '\t')
		w.line = append(w.line, c.String()...)
	}
	w.line = append(w.line, '\n')

	_, err := w.bufw.Write(w.line)
	return pfx.Err(err)
}

// Close flushes all buffered output and closes any file opened by Create.
func (w *Writer) Close() error {
	if err := w.bufw.Flush(); err != nil {
		return pfx.Err(err)
	}
	if w.gzw != nil {
		if err := w.gzw.Close(); err != nil {
			return pfx.Err(err)
		}
	}
	if w.file != nil {
		return pfx.Err(w.file.Close())
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
