package persistence

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestS3Persister_Load(t *testing.T) {
	t.Parallel()
	api := &mockObjectAPI{}
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "aid-ledger" && aws.ToString(in.Key) == "studentaid_ledger_v2.json"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(`{"version":3}`))}, nil).Once()

	p := NewS3Persister(api, "aid-ledger", "studentaid_ledger_v2")
	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3}`, string(data))
	api.AssertExpectations(t)
}

func TestS3Persister_LoadMissing(t *testing.T) {
	t.Parallel()
	api := &mockObjectAPI{}
	api.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()

	p := NewS3Persister(api, "aid-ledger", "studentaid_ledger_v2")
	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoSnapshot)
}

func TestS3Persister_LoadError(t *testing.T) {
	t.Parallel()
	denied := errors.New("access denied")
	api := &mockObjectAPI{}
	api.On("GetObject", mock.Anything, mock.Anything).Return(nil, denied).Once()

	p := NewS3Persister(api, "aid-ledger", "studentaid_ledger_v2")
	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, denied)
	assert.NotErrorIs(t, err, ledger.ErrNoSnapshot)
}

func TestS3Persister_Save(t *testing.T) {
	t.Parallel()
	api := &mockObjectAPI{}
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Key) == "studentaid_ledger_v2.json" &&
			aws.ToString(in.ContentType) == "application/json" &&
			aws.ToInt64(in.ContentLength) == int64(len(body)) &&
			string(body) == `{"version":5}`
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	p := NewS3Persister(api, "aid-ledger", "studentaid_ledger_v2")
	require.NoError(t, p.Save(context.Background(), []byte(`{"version":5}`)))
	api.AssertExpectations(t)
}
