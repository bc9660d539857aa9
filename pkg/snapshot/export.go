package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Exporter stores a snapshot and returns where it was written.
// Implement this interface to use other storage.
type Exporter interface {
	Export(ctx context.Context, s *Snapshot) (string, error)
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// FileExporter writes snapshots as <dir>/<id>.json.
type FileExporter struct {
	dir string
}

// NewFileExporter creates the directory if needed.
func NewFileExporter(dir string) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileExporter{dir: dir}, nil
}

// Export writes s and returns the file path.
func (e *FileExporter) Export(ctx context.Context, s *Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, s.ID.String()+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ObjectPutter is the part of *s3.Client the S3 exporter needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads snapshots to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	exp := snapshot.NewS3Exporter(s3.NewFromConfig(cfg), "my-bucket", "vgraph/")
//	location, err := exp.Export(ctx, snapshot.Take(g))
type S3Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Exporter creates a new S3 exporter. Keys are prefix + id + ".json".
func NewS3Exporter(client ObjectPutter, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key s is stored under.
func (e *S3Exporter) Key(s *Snapshot) string {
	return e.prefix + s.ID.String() + ".json"
}

// Export uploads s and returns its s3:// URL.
func (e *S3Exporter) Export(ctx context.Context, s *Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return "", err
	}

	key := e.Key(s)
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"vgraph-clock": strconv.FormatUint(s.Clock, 10),
			"vgraph-nodes": strconv.Itoa(len(s.Nodes)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return "s3://" + e.bucket + "/" + key, nil
}
