package assets

import (
	"context"
	"encoding/base64"
	"errors"
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

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestDecodeDataURL(t *testing.T) {
	data, ct, err := DecodeDataURL(pngDataURL())
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, pngBytes, data)

	_, _, err = DecodeDataURL("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = DecodeDataURL("data:image/png,rawbytes")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = DecodeDataURL("data:text/plain;base64,aGk=")
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, _, err = DecodeDataURL("data:image/png;base64,%%%")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	huge := "data:image/png;base64," + strings.Repeat("A", (MaxImageBytes/3+10)*4)
	_, _, err = DecodeDataURL(huge)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir, "http://localhost:5000/uploads/")
	require.NoError(t, err)
	store := NewStore(backend)

	url, err := store.PutDataURL(context.Background(), pngDataURL())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:5000/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	written, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, written)

	_, err = store.PutImage(context.Background(), "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	putter := &fakePutter{}
	store := NewStore(newS3Backend(putter, "chat-media", "https://media.example.com/"))

	url, err := store.PutDataURL(context.Background(), pngDataURL())
	require.NoError(t, err)

	require.NotNil(t, putter.in)
	assert.Equal(t, "chat-media", aws.ToString(putter.in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(putter.in.ContentType))
	assert.Equal(t, int64(len(pngBytes)), aws.ToInt64(putter.in.ContentLength))
	assert.True(t, strings.HasPrefix(aws.ToString(putter.in.Key), "messages/"))
	assert.Equal(t, "https://media.example.com/"+aws.ToString(putter.in.Key), url)
	assert.Equal(t, pngBytes, putter.body)

	putter.err = errors.New("access denied")
	_, err = store.PutDataURL(context.Background(), pngDataURL())
	assert.Error(t, err)
}
