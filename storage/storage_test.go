package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSniffImage(t *testing.T) {
	img, err := SniffImage(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)

	_, err = SniffImage([]byte("<?php echo 'hi'; ?>"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/static/uploads/")

	url, err := store.Save(context.Background(), pngBytes(t), "image/png", ".png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/static/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	_, err = os.Stat(filepath.Join(dir, filepath.Base(url)))
	assert.NoError(t, err)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3StoreSave(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Store{Client: fake, Bucket: "menu", Prefix: "/items/", PublicURL: "https://cdn.example.com/"}

	data := pngBytes(t)
	url, err := store.Save(context.Background(), data, "image/png", ".png")
	require.NoError(t, err)

	key := aws.ToString(fake.input.Key)
	assert.True(t, strings.HasPrefix(key, "items/"))
	assert.Equal(t, "menu", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
	assert.Equal(t, data, fake.body)
	assert.Equal(t, "https://cdn.example.com/"+key, url)

	fake.err = errors.New("denied")
	_, err = store.Save(context.Background(), data, "image/png", ".png")
	assert.Error(t, err)
}
