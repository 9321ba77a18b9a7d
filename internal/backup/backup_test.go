package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/store"
)

type memObject struct {
	data     []byte
	modified time.Time
}

// memBucket is an in-memory objectStore.
type memBucket struct {
	mu      sync.Mutex
	objects map[string]memObject
	now     func() time.Time
	delErr  error
}

func newMemBucket(now func() time.Time) *memBucket {
	return &memBucket{objects: map[string]memObject{}, now: now}
}

func (m *memBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = memObject{data: data, modified: m.now()}
	return &s3.PutObjectOutput{}, nil
}

func (m *memBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (m *memBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k, obj := range m.objects {
		if !strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*Archiver, *database.DB, *memBucket, *clock) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "quiet.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	c := &clock{t: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	bucket := newMemBucket(c.now)
	a, err := newArchiver(db, bucket, "quiet-backups", "quiet", "hunter2", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	a.now = c.now
	return a, db, bucket, c
}

func TestNewRequiresConfiguration(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := New(db, S3Config{Bucket: "b"}, "pass", logger); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing credentials: got %v", err)
	}
	full := S3Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}
	if _, err := New(db, full, "", logger); !errors.Is(err, ErrNoPassphrase) {
		t.Errorf("missing passphrase: got %v", err)
	}
	if _, err := New(db, full, "pass", logger); err != nil {
		t.Errorf("configured archiver: %v", err)
	}
	pg := &database.DB{Dialect: database.DialectPostgres}
	if _, err := newArchiver(pg, newMemBucket(time.Now), "b", "", "pass", logger); !errors.Is(err, ErrNotSQLite) {
		t.Errorf("postgres store: got %v", err)
	}
}

func TestCreateAndRestore(t *testing.T) {
	a, db, bucket, _ := setup(t)
	ctx := context.Background()

	addr := "reader@example.com"
	if _, err := store.NewProfileStore(db).Create(ctx, &addr, "Reader", ""); err != nil {
		t.Fatal(err)
	}

	snap, err := a.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if snap.Key != "quiet/quiet-20260310T000000Z.db.enc" {
		t.Errorf("key = %q", snap.Key)
	}
	stored := bucket.objects[snap.Key].data
	if bytes.Contains(stored, []byte("reader@example.com")) {
		t.Error("snapshot was uploaded unencrypted")
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := a.Restore(ctx, snap.Key, dst); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := database.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer restored.Close()
	p, err := store.NewProfileStore(restored).GetByEmail(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.DisplayName != "Reader" {
		t.Fatalf("restored profile = %+v", p)
	}

	if err := a.Restore(ctx, snap.Key, dst); err == nil {
		t.Error("restore over an existing file should fail")
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	a, _, _, _ := setup(t)
	ctx := context.Background()
	snap, err := a.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	a.passphrase = "not it"

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := a.Restore(ctx, snap.Key, dst); err == nil {
		t.Fatal("expected decrypt failure")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("failed restore left a file behind")
	}
}

func TestListAndPrune(t *testing.T) {
	a, _, bucket, c := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := a.Create(ctx); err != nil {
			t.Fatal(err)
		}
		c.t = c.t.Add(24 * time.Hour)
	}

	snaps, err := a.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	if !snaps[0].CreatedAt.After(snaps[2].CreatedAt) {
		t.Error("list should be newest first")
	}

	// Clock is now 3 days after the first snapshot.
	n, err := a.Prune(ctx, 36*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}

	// The newest snapshot survives any retention.
	n, err = a.Prune(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(bucket.objects) != 1 {
		t.Errorf("pruned %d, %d left; newest must survive", n, len(bucket.objects))
	}
}

func TestPruneKeepsGoingOnDeleteError(t *testing.T) {
	a, _, bucket, c := setup(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := a.Create(ctx); err != nil {
			t.Fatal(err)
		}
		c.t = c.t.Add(48 * time.Hour)
	}
	bucket.delErr = errors.New("denied")

	n, err := a.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pruned %d, want 0 when deletes fail", n)
	}
}
