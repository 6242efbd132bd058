package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"resume-editor/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	for raw, want := range map[string]string{
		"":           "",
		" /editor/ ": "editor",
		"a/b/":       "a/b",
		"/snapshots": "snapshots",
	} {
		if got := normalizePrefix(raw); got != want {
			t.Fatalf("normalizePrefix(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), "us-east-1", "", "", ""); err == nil {
		t.Fatalf("expected bucket error")
	}
}

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestSaveWithKeyRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "/editor/", "kms-1")
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "editor-snapshots/s/1.json", "application/json", strings.NewReader(`{"v":1}`))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != 7 {
		t.Fatalf("size = %d, want 7", n)
	}
	put := fake.puts[0]
	if aws.ToString(put.Key) != "editor/editor-snapshots/s/1.json" {
		t.Fatalf("unexpected key %q", aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-1" {
		t.Fatalf("expected kms encryption, got %v", put.ServerSideEncryption)
	}
	if aws.ToInt64(put.ContentLength) != 7 {
		t.Fatalf("content length = %d", aws.ToInt64(put.ContentLength))
	}

	rc, err := store.Open(ctx, "editor-snapshots/s/1.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != `{"v":1}` {
		t.Fatalf("unexpected body %q", body)
	}

	if err := store.Delete(ctx, "editor-snapshots/s/1.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "editor-snapshots/s/1.json"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveSniffsAndNamespaces(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "", "")

	key, size, mime, err := store.Save(context.Background(), "guest:1", "cv.md", strings.NewReader("# Ada\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, "uploads/"+object.OwnerNamespace("guest:1")+"/") {
		t.Fatalf("unexpected key %q", key)
	}
	if size != 6 || !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("size=%d mime=%q", size, mime)
	}
	if fake.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 default encryption")
	}
}

func TestSaveRejectsOversizedBody(t *testing.T) {
	store := NewWithClient(newFakeS3(), "bucket", "", "")
	big := bytes.Repeat([]byte("a"), MaxObjectSize+1)
	if _, err := store.SaveWithKey(context.Background(), "k", "text/plain", bytes.NewReader(big)); err == nil {
		t.Fatal("expected size error")
	}
}
