package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_ObjectKey(t *testing.T) {
	assert.Equal(t, "carts/cart-storage/abc.json", NewS3Storage(newFakeS3(), "b", "/carts/").ObjectKey("cart-storage:abc"))
	assert.Equal(t, "cart-storage.json", NewS3Storage(newFakeS3(), "b", "").ObjectKey("cart-storage"))
}

func TestS3Storage_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Storage(fake, "storefront-carts", "carts")
	ctx := context.Background()

	_, err := store.Get(ctx, "cart-storage:s1")
	assert.ErrorIs(t, err, repository.ErrCartStateNotFound)

	require.NoError(t, store.Set(ctx, "cart-storage:s1", []byte(`{"items":[]}`)))
	assert.Contains(t, fake.objects, "storefront-carts/carts/cart-storage/s1.json")

	payload, err := store.Get(ctx, "cart-storage:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(payload))

	require.NoError(t, store.Delete(ctx, "cart-storage:s1"))
	_, err = store.Get(ctx, "cart-storage:s1")
	assert.ErrorIs(t, err, repository.ErrCartStateNotFound)
}

func TestS3Storage_PutFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("quota exceeded")
	store := NewS3Storage(fake, "b", "")

	err := store.Set(context.Background(), "cart-storage:s1", []byte("{}"))
	assert.ErrorContains(t, err, "quota exceeded")
}
