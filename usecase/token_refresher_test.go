package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRefresher(creds *MockCredential, authority *MockTokenAuthority) *TokenRefresher {
	r := NewTokenRefresher(creds, authority, 5*time.Minute).(*TokenRefresher)
	r.now = fixedClock(testNow)
	return r
}

func credential(expiresIn time.Duration, refreshToken string) *model.HostCredential {
	exp := testNow.Add(expiresIn)
	return &model.HostCredential{HostID: "UC1", AccessToken: "at-old", RefreshToken: refreshToken, ExpiresAt: &exp}
}

func TestTokenRefresher_GetValidAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential makes no network call", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(nil, nil)

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, ErrHostNotConnected)
		assert.True(t, IsCredentialUnavailable(err))
		authority.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("valid token is returned without refresh", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(10*time.Minute, "rt"), nil)

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		require.NoError(t, err)
		assert.Equal(t, "at-old", token)
		authority.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
		creds.AssertNotCalled(t, "UpdateAccessToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token inside the buffer is refreshed and persisted", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(4*time.Minute, "rt"), nil)
		authority.On("Refresh", mock.Anything, "rt").Return(&model.TokenGrant{AccessToken: "at-new", RefreshToken: "rt", ExpiresIn: time.Hour}, nil).Once()
		creds.On("UpdateAccessToken", mock.Anything, "UC1", "at-new", time.Hour).Return(nil).Once()

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		require.NoError(t, err)
		assert.Equal(t, "at-new", token)
		creds.AssertExpectations(t)
		creds.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expiry exactly at the buffer counts as expired", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(5*time.Minute, "rt"), nil)
		authority.On("Refresh", mock.Anything, "rt").Return(&model.TokenGrant{AccessToken: "at-new", ExpiresIn: time.Hour}, nil).Once()
		creds.On("UpdateAccessToken", mock.Anything, "UC1", "at-new", time.Hour).Return(nil)

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		require.NoError(t, err)
		assert.Equal(t, "at-new", token)
	})

	t.Run("missing expiry forces a refresh", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(&model.HostCredential{HostID: "UC1", AccessToken: "at-old", RefreshToken: "rt"}, nil)
		authority.On("Refresh", mock.Anything, "rt").Return(&model.TokenGrant{AccessToken: "at-new"}, nil).Once()
		creds.On("UpdateAccessToken", mock.Anything, "UC1", "at-new", time.Hour).Return(nil)

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		require.NoError(t, err)
		assert.Equal(t, "at-new", token)
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(-time.Minute, "rt"), nil)
		authority.On("Refresh", mock.Anything, "rt").Return(&model.TokenGrant{AccessToken: "at-new", RefreshToken: "rt-2", ExpiresIn: time.Hour}, nil)
		creds.On("UpdateAccessToken", mock.Anything, "UC1", "at-new", time.Hour).Return(nil)
		creds.On("RotateRefreshToken", mock.Anything, "UC1", "rt-2").Return(nil).Once()

		_, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		require.NoError(t, err)
		creds.AssertExpectations(t)
	})

	t.Run("failed rotation is a storage error", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(-time.Minute, "rt"), nil)
		authority.On("Refresh", mock.Anything, "rt").Return(&model.TokenGrant{AccessToken: "at-new", RefreshToken: "rt-2", ExpiresIn: time.Hour}, nil)
		creds.On("RotateRefreshToken", mock.Anything, "UC1", "rt-2").Return(errors.New("write conflict"))

		token, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		assert.Empty(t, token)
		assert.True(t, apperror.Is(err, apperror.KindStorage))
		creds.AssertNotCalled(t, "UpdateAccessToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired without refresh token requires re-auth", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(-time.Minute, ""), nil)

		_, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		assert.ErrorIs(t, err, ErrReauthRequired)
		authority.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("refresh failure is credential unavailable", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(credential(-time.Minute, "rt"), nil)
		authority.On("Refresh", mock.Anything, "rt").Return(nil, &model.PlatformError{StatusCode: 400, Message: "invalid_grant"})

		_, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.True(t, IsCredentialUnavailable(err))
		creds.AssertNotCalled(t, "UpdateAccessToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure is a storage error", func(t *testing.T) {
		creds, authority := new(MockCredential), new(MockTokenAuthority)
		creds.On("Load", mock.Anything, "UC1").Return(nil, errors.New("connection refused"))

		_, err := newRefresher(creds, authority).GetValidAccessToken(ctx, "UC1")
		assert.True(t, apperror.Is(err, apperror.KindStorage))
		assert.False(t, IsCredentialUnavailable(err))
	})
}

type gatedAuthority struct {
	calls int32
	gate  chan struct{}
}

func (g *gatedAuthority) AuthCodeURL(string) string { return "" }

func (g *gatedAuthority) Exchange(context.Context, string) (*model.TokenGrant, error) {
	return nil, errors.New("unused")
}

func (g *gatedAuthority) Refresh(_ context.Context, refreshToken string) (*model.TokenGrant, error) {
	atomic.AddInt32(&g.calls, 1)
	<-g.gate
	return &model.TokenGrant{AccessToken: "at-new", RefreshToken: refreshToken, ExpiresIn: time.Hour}, nil
}

func TestTokenRefresher_ConcurrentCallersShareOneRefresh(t *testing.T) {
	creds := newFakeCredentials(fixedClock(testNow))
	creds.set(*credential(time.Minute, "rt"))
	authority := &gatedAuthority{gate: make(chan struct{})}
	r := NewTokenRefresher(creds, authority, 5*time.Minute).(*TokenRefresher)
	r.now = fixedClock(testNow)

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := r.GetValidAccessToken(context.Background(), "UC1")
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&authority.calls) == 1 }, time.Second, time.Millisecond)
	close(authority.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&authority.calls))
	for _, token := range tokens {
		assert.Equal(t, "at-new", token)
	}
	stored, _ := creds.Load(context.Background(), "UC1")
	assert.Equal(t, "at-new", stored.AccessToken)
	require.NotNil(t, stored.LastRefreshed)
}

// ctxCredentials fails writes whose context is already done, like a SQL driver.
type ctxCredentials struct {
	*fakeCredentials
}

func (c ctxCredentials) UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeCredentials.UpdateAccessToken(ctx, hostID, accessToken, expiresIn)
}

func TestTokenRefresher_CancelledFirstCallerDoesNotFailTheRefresh(t *testing.T) {
	creds := newFakeCredentials(fixedClock(testNow))
	creds.set(*credential(time.Minute, "rt"))
	authority := &gatedAuthority{gate: make(chan struct{})}
	r := NewTokenRefresher(ctxCredentials{creds}, authority, 5*time.Minute).(*TokenRefresher)
	r.now = fixedClock(testNow)

	firstCtx, cancel := context.WithCancel(context.Background())
	type result struct {
		token string
		err   error
	}
	first := make(chan result, 1)
	go func() {
		token, err := r.GetValidAccessToken(firstCtx, "UC1")
		first <- result{token, err}
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&authority.calls) == 1 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := r.GetValidAccessToken(context.Background(), "UC1")
			assert.NoError(t, err)
			assert.Equal(t, "at-new", token)
		}()
	}

	cancel()
	close(authority.gate)
	got := <-first
	wg.Wait()

	require.NoError(t, got.err)
	assert.Equal(t, "at-new", got.token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authority.calls))
	stored, _ := creds.Load(context.Background(), "UC1")
	assert.Equal(t, "at-new", stored.AccessToken)
}
