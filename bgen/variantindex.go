package bgen

import (
	"fmt"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

type BGIIndex struct {
	DB       *sqlx.DB
	Metadata *BGIMetadata
}

func (b *BGIIndex) Close() error {
	return b.DB.Close()
}

func openBGI(driver, path string) (*BGIIndex, error) {
	bgi := &BGIIndex{
		Metadata: &BGIMetadata{},
	}

	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html . It seems that sqlite3 permitted
	// URI filenames without the file: prefix, but that is not standard.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect(driver, path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	bgi.DB = db

	// Not all index files have metadata; ignore any error
	_ = bgi.DB.Get(bgi.Metadata, "SELECT * FROM Metadata LIMIT 1")

	return bgi, nil
}

const variantIndexColumns = "chromosome, position, rsid, number_of_alleles, allele1, allele2, file_start_position, size_in_bytes"

// Variants lists the indexed variants in file order. If chromosome is not
// empty, only variants on that chromosome are returned.
func (b *BGIIndex) Variants(chromosome string) ([]VariantIndex, error) {
	var out []VariantIndex
	var err error

	if chromosome == "" {
		err = b.DB.Select(&out, fmt.Sprintf("SELECT %s FROM Variant ORDER BY file_start_position ASC", variantIndexColumns))
	} else {
		err = b.DB.Select(&out, fmt.Sprintf("SELECT %s FROM Variant WHERE chromosome = ? ORDER BY file_start_position ASC", variantIndexColumns), chromosome)
	}
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// VariantIndex conforms to the data found in the rows of the SQLite table
// "Variant" from BGEN Index (.bgi) files, and can be easily parsed with sqlx.
type VariantIndex struct {
	Chromosome        string
	Position          uint32
	RSID              string `db:"rsid"`
	NAlleles          uint16 `db:"number_of_alleles"`
	Allele1           Allele
	Allele2           Allele
	FileStartPosition uint `db:"file_start_position"`
	SizeInBytes       uint `db:"size_in_bytes"`
}

// BGIMetadata conforms to the data found in the rows of the SQLite table
// "Metadata" from more recent versions of BGEN.
type BGIMetadata struct {
	Filename           string
	FileSize           uint   `db:"file_size"`
	LastWriteTime      Time   `db:"last_write_time"`
	FirstThousandBytes []byte `db:"first_1000_bytes"`
	IndexCreationTime  Time   `db:"index_creation_time"`
}
