//go:build !cgo

package bgen

// If cgo is not enabled, we will use the modernc.org/sqlite non-cgo sqlite
// driver. It is slower than the sqlite3 cgo driver.

import (
	"fmt"

	_ "modernc.org/sqlite"
)

const whichSQLiteDriver = "sqlite"

func OpenBGI(path string) (*BGIIndex, error) {
	bgi, err := openBGI(whichSQLiteDriver, path)
	if err != nil {
		return nil, err
	}

	// See https://www.rockyourcode.com/til-sqlite-foreign-key-support-with-go/
	// and https://twitter.com/frioux/status/1483235674228596739
	_, err = bgi.DB.DB.Exec(`
	PRAGMA journal_mode = OFF;
	PRAGMA synchronous = OFF;
	PRAGMA auto_vacuum = NONE;
	`)
	if err != nil {
		bgi.Close()
		return nil, fmt.Errorf("unable to set pragmas: %w", err)
	}

	return bgi, nil
}
