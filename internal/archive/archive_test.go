package archive

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverStore(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archiver{client: fake, bucket: "safety"}

	key, err := a.Store(context.Background(), "Observaciones_2024-03-10.xlsx", "application/octet-stream", []byte("data"))
	require.NoError(t, err)

	assert.Equal(t, "reports/Observaciones_2024-03-10.xlsx", key)
	assert.Equal(t, "safety", aws.ToString(fake.input.Bucket))
	assert.Equal(t, key, aws.ToString(fake.input.Key))
	assert.Equal(t, []byte("data"), fake.body)
}

func TestNewS3ArchiverWithoutBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Disabled{}.Store(context.Background(), "x", "y", nil)
	assert.ErrorIs(t, err, ErrDisabled)
}
