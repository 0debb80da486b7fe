package bgen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// GSReaderAt decorates a Google Storage object handle with ReadAt, so that a
// BGEN can be parsed in place with ranged reads.
type GSReaderAt struct {
	*storage.ObjectHandle
	Context context.Context
	Size    int64
}

// ReadAt satisfies io.ReaderAt. Each call issues one ranged read of len(p)
// bytes.
func (o *GSReaderAt) ReadAt(p []byte, offset int64) (int, error) {
	if offset >= o.Size {
		return 0, io.EOF
	}

	length := int64(len(p))
	if offset+length > o.Size {
		length = o.Size - offset
	}

	rdr, err := o.NewRangeReader(o.Context, offset, length)
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	n, err := io.ReadFull(rdr, p[:length])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// SplitGSPath splits gs://bucket/path/to/object into its bucket and object.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if !strings.HasPrefix(path, "gs://") || len(pathParts) != 2 || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}
	return pathParts[0], pathParts[1], nil
}

// OpenGoogleStorage opens a BGEN stored at a gs:// path without downloading it.
func OpenGoogleStorage(ctx context.Context, path string, client *storage.Client) (*BGEN, error) {
	bucketName, pathName, err := SplitGSPath(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	handle := client.Bucket(bucketName).Object(pathName)

	// Make a hard call to get the filesize
	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	b, err := NewFromReaderAt(&GSReaderAt{ObjectHandle: handle, Context: ctx, Size: attrs.Size})
	if err != nil {
		return nil, pfx.Err(err)
	}
	b.FilePath = path

	return b, nil
}

// DownloadGoogleStorage copies a gs:// object, typically a .bgi index that
// SQLite must open locally, into dst.
func DownloadGoogleStorage(ctx context.Context, path string, client *storage.Client, dst io.Writer) error {
	bucketName, pathName, err := SplitGSPath(path)
	if err != nil {
		return pfx.Err(err)
	}

	rdr, err := client.Bucket(bucketName).Object(pathName).NewReader(ctx)
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %s", path, err))
	}
	defer rdr.Close()

	if _, err := io.Copy(dst, rdr); err != nil {
		return pfx.Err(err)
	}

	return nil
}
