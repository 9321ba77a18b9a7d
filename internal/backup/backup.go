// Package backup writes encrypted snapshots of the SQLite store to
// S3-compatible object storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/quietcuration/internal/database"
)

const keyLayout = "20060102T150405Z"

var (
	ErrNotConfigured = errors.New("backup storage is not configured")
	ErrNoPassphrase  = errors.New("backup passphrase is not set")
	ErrNotSQLite     = errors.New("snapshots are only supported for the sqlite store")
)

// objectStore is the part of the S3 API the archiver uses.
type objectStore interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage settings.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Snapshot describes one stored backup.
type Snapshot struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Archiver struct {
	db         *database.DB
	client     objectStore
	bucket     string
	prefix     string
	passphrase string
	logger     *slog.Logger
	now        func() time.Time
}

// New returns an archiver for db. It fails unless the store is SQLite and
// both storage and passphrase are configured.
func New(db *database.DB, cfg S3Config, passphrase string, logger *slog.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	return newArchiver(db, newS3Client(cfg), cfg.Bucket, cfg.Prefix, passphrase, logger)
}

func newArchiver(db *database.DB, client objectStore, bucket, prefix, passphrase string, logger *slog.Logger) (*Archiver, error) {
	if db.Dialect != database.DialectSQLite {
		return nil, ErrNotSQLite
	}
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archiver{
		db:         db,
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		passphrase: passphrase,
		logger:     logger.With("component", "backup"),
		now:        time.Now,
	}, nil
}

// Create copies the live database with VACUUM INTO, seals it and uploads it.
func (a *Archiver) Create(ctx context.Context) (Snapshot, error) {
	ts := a.now().UTC()
	tmpDir, err := os.MkdirTemp("", "quiet-snapshot-")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	copyPath := filepath.Join(tmpDir, "snapshot.db")
	if _, err := a.db.ExecContext(ctx, `VACUUM INTO ?`, copyPath); err != nil {
		return Snapshot{}, fmt.Errorf("copy database: %w", err)
	}
	plain, err := os.ReadFile(copyPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Seal(plain, a.passphrase)
	if err != nil {
		return Snapshot{}, err
	}

	key := a.prefix + "quiet-" + ts.Format(keyLayout) + ".db.enc"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload snapshot: %w", err)
	}

	snap := Snapshot{Key: key, Size: int64(len(sealed)), CreatedAt: ts}
	a.logger.Info("snapshot uploaded", "key", key, "bytes", snap.Size)
	return snap, nil
}

// List returns the stored snapshots, newest first.
func (a *Archiver) List(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix + "quiet-"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			snap := Snapshot{Key: key, Size: aws.ToInt64(obj.Size), CreatedAt: aws.ToTime(obj.LastModified)}
			if ts, ok := keyTime(a.prefix, key); ok {
				snap.CreatedAt = ts
			}
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func keyTime(prefix, key string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(key, prefix+"quiet-"), ".db.enc")
	ts, err := time.Parse(keyLayout, stamp)
	return ts, err == nil
}

// Prune deletes snapshots older than keep. The newest snapshot always
// survives. It returns the number deleted.
func (a *Archiver) Prune(ctx context.Context, keep time.Duration) (int, error) {
	snaps, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := a.now().UTC().Add(-keep)
	deleted := 0
	for i, s := range snaps {
		if i == 0 || !s.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(s.Key),
		}); err != nil {
			a.logger.Error("delete snapshot", "key", s.Key, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Restore downloads key, decrypts it, checks its integrity and writes it to
// dst. dst must not exist; swapping it in for the live file is left to the
// operator while the service is stopped.
func (a *Archiver) Restore(ctx context.Context, key, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore target %s already exists", dst)
	}

	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download snapshot: %w", err)
	}
	defer obj.Body.Close()
	sealed, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	plain, err := Open(sealed, a.passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move snapshot into place: %w", err)
	}
	a.logger.Info("snapshot restored", "key", key, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
