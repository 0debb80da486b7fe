package gtsample

import (
	"bytes"
	"encoding/csv"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/carbocation/genomisc"
	"github.com/carbocation/pfx"
)

// ReadPloidyFile parses a two-column samples file, one "name ploidy" pair per
// line, as written alongside phased chrX data. Tab, space and comma delimiters
// are all accepted. Blank lines and lines starting with '#' are skipped.
func ReadPloidyFile(r io.Reader) (map[string]Ploidy, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := genomisc.DetermineDelimiter(bytes.NewReader(data))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	out := make(map[string]Ploidy)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, configErrorf("ploidy_file", "%v", err)
		}

		if len(rec) == 1 {
			// Mixed whitespace that the detector did not settle on
			rec = strings.Fields(rec[0])
		}
		if len(rec) < 2 {
			return nil, configErrorf("ploidy_file", "record %d has %d columns; expected 2", line, len(rec))
		}

		name := strings.TrimSpace(rec[0])
		val, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, configErrorf("ploidy_file", "record %d: sample %q: %v", line, name, err)
		}
		p := Ploidy(val)
		if val < 0 || val > 255 || !p.Valid() {
			return nil, configErrorf("ploidy_file", "record %d: sample %q has ploidy %d; expected 1 or 2", line, name, val)
		}
		if _, dup := out[name]; dup {
			return nil, configErrorf("ploidy_file", "record %d: sample %q is listed more than once", line, name)
		}
		out[name] = p
	}

	return out, nil
}
