package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError.
type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is an in-memory bucket.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

type mockPresigner struct {
	expires time.Duration
}

func (p *mockPresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://" + *in.Bucket + ".s3.example.com/" + *in.Key + "?X-Amz-Signature=abc",
		Method: "GET",
	}, nil
}

func newTestS3(t *testing.T) (*S3Store, *mockS3, *mockPresigner) {
	t.Helper()
	mock := newMockS3()
	presigner := &mockPresigner{}
	store, err := NewS3(mock, presigner, "voices", "echobridge", t.TempDir(), 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return store, mock, presigner
}

func TestS3CommitUploadsAndRemovesStaging(t *testing.T) {
	store, mock, _ := newTestS3(t)
	ctx := context.Background()
	name := NewName()
	staged := stage(t, store.Dir(), name, "mp3-bytes")

	if err := store.Commit(ctx, name, staged); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staged file should be removed, stat err = %v", err)
	}
	key := "echobridge/" + name
	if string(mock.objects[key]) != "mp3-bytes" || mock.types[key] != "audio/mpeg" {
		t.Fatalf("object = %q (%s)", mock.objects[key], mock.types[key])
	}

	ok, err := store.Exists(ctx, name)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := store.Commit(ctx, name, stage(t, store.Dir(), name, "again")); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("overwrite err = %v", err)
	}
}

func TestS3CommitFailureLeavesNothing(t *testing.T) {
	store, mock, _ := newTestS3(t)
	mock.putErr = errors.New("connection reset")
	name := NewName()
	staged := stage(t, store.Dir(), name, "mp3-bytes")

	if err := store.Commit(context.Background(), name, staged); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("staged file should be removed on failure")
	}
	if ok, _ := store.Exists(context.Background(), name); ok {
		t.Fatal("object must not exist")
	}
}

func TestS3OpenMissingWrapsNotExist(t *testing.T) {
	store, _, _ := newTestS3(t)
	if _, err := store.Open(context.Background(), NewName()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestS3PresignedURL(t *testing.T) {
	store, _, presigner := newTestS3(t)
	name := NewName()
	url, err := store.URL(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "https://voices.s3.example.com/echobridge/"+name) {
		t.Fatalf("url = %q", url)
	}
	if presigner.expires != 5*time.Minute {
		t.Fatalf("presign ttl = %v", presigner.expires)
	}
}
