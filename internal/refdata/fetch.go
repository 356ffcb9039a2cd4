// Package refdata downloads the shared reference-image pack from object
// storage. Many tests reference multi-gigabyte images that do not live in
// the repository; fetching them once into a local directory lets the whole
// suite run offline afterwards.
package refdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openpixel/pxtest/internal/output"
)

// Environment variables overriding the image-pack location.
const (
	EnvBucket = "PXTEST_IMAGE_BUCKET"
	EnvPrefix = "PXTEST_IMAGE_PREFIX"
)

const (
	defaultBucket = "openpixel-testdata"
	defaultPrefix = "images/"
)

// ObjectStore is the slice of the S3 API the fetcher needs. The real
// *s3.Client satisfies it; tests substitute a fake.
type ObjectStore interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher mirrors a bucket prefix into a local directory.
type Fetcher struct {
	Store  ObjectStore
	Bucket string
	Prefix string
	Dest   string
	Out    *output.Writer
}

// New builds a Fetcher against real object storage, using the standard
// credential chain.
func New(ctx context.Context, dest string, out *output.Writer) (*Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	bucket := os.Getenv(EnvBucket)
	if bucket == "" {
		bucket = defaultBucket
	}
	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Fetcher{
		Store:  s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
		Dest:   dest,
		Out:    out,
	}, nil
}

// Fetch downloads every object under the prefix that is missing locally or
// differs in size. Returns the number of files downloaded.
func (f *Fetcher) Fetch(ctx context.Context) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(f.Store, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.Bucket),
		Prefix: aws.String(f.Prefix),
	})

	downloaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return downloaded, fmt.Errorf("failed to list s3://%s/%s: %w", f.Bucket, f.Prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			local := LocalPath(f.Dest, f.Prefix, key)
			if upToDate(local, aws.ToInt64(obj.Size)) {
				if f.Out != nil {
					f.Out.Verbose("up to date: %s", local)
				}
				continue
			}
			if err := f.download(ctx, key, local); err != nil {
				return downloaded, err
			}
			downloaded++
			if f.Out != nil {
				f.Out.Info("fetched %s", local)
			}
		}
	}
	return downloaded, nil
}

// LocalPath maps an object key to its place under dest, with the bucket
// prefix stripped.
func LocalPath(dest, prefix, key string) string {
	rel := strings.TrimPrefix(key, prefix)
	rel = strings.TrimPrefix(rel, "/")
	return filepath.Join(dest, filepath.FromSlash(rel))
}

// upToDate reports whether the local file already matches the remote size.
// Size is a weak check but the image pack is append-only in practice.
func upToDate(local string, size int64) bool {
	info, err := os.Stat(local)
	return err == nil && info.Size() == size
}

func (f *Fetcher) download(ctx context.Context, key, local string) error {
	out, err := f.Store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch s3://%s/%s: %w", f.Bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	tmp := local + ".partial"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, out.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", local, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, local)
}
