package usecase

import (
	"context"
	"sync"
	"time"

	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"

	"github.com/stretchr/testify/mock"
)

type MockYouTube struct {
	mock.Mock
}

func (m *MockYouTube) SearchVideos(ctx context.Context, req *dto.YouTubeSearchRequest) ([]model.Video, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Video), args.Error(1)
}

func (m *MockYouTube) GetMyChannel(ctx context.Context, accessToken string) (*model.YouTubeChannel, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.YouTubeChannel), args.Error(1)
}

func (m *MockYouTube) GetMyPlaylists(ctx context.Context, accessToken string) ([]model.YouTubePlaylist, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.YouTubePlaylist), args.Error(1)
}

func (m *MockYouTube) GetPlaylistVideos(ctx context.Context, accessToken, playlistID string, maxResults int64) ([]model.Video, error) {
	args := m.Called(ctx, accessToken, playlistID, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Video), args.Error(1)
}

func (m *MockYouTube) AddVideoToPlaylist(ctx context.Context, accessToken, playlistID, videoID string) (string, error) {
	args := m.Called(ctx, accessToken, playlistID, videoID)
	return args.String(0), args.Error(1)
}

type MockTokenAuthority struct {
	mock.Mock
}

func (m *MockTokenAuthority) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockTokenAuthority) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

func (m *MockTokenAuthority) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

type MockCredential struct {
	mock.Mock
}

func (m *MockCredential) Save(ctx context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error {
	return m.Called(ctx, hostID, accessToken, refreshToken, expiresIn, scope).Error(0)
}

func (m *MockCredential) Load(ctx context.Context, hostID string) (*model.HostCredential, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HostCredential), args.Error(1)
}

func (m *MockCredential) UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	return m.Called(ctx, hostID, accessToken, expiresIn).Error(0)
}

func (m *MockCredential) RotateRefreshToken(ctx context.Context, hostID, refreshToken string) error {
	return m.Called(ctx, hostID, refreshToken).Error(0)
}

func (m *MockCredential) Clear(ctx context.Context, hostID string) error {
	return m.Called(ctx, hostID).Error(0)
}

type MockActivation struct {
	mock.Mock
}

func (m *MockActivation) Get(ctx context.Context) (*model.ActivationRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActivationRecord), args.Error(1)
}

func (m *MockActivation) Put(ctx context.Context, rec *model.ActivationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) GetSearch(ctx context.Context, key string) ([]model.Video, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Video), args.Error(1)
}

func (m *MockSearchCache) SetSearch(ctx context.Context, key string, videos []model.Video, ttl time.Duration) error {
	return m.Called(ctx, key, videos, ttl).Error(0)
}

type MockOAuthState struct {
	mock.Mock
}

func (m *MockOAuthState) Put(ctx context.Context, state string, ttl time.Duration) error {
	return m.Called(ctx, state, ttl).Error(0)
}

func (m *MockOAuthState) Consume(ctx context.Context, state string) (bool, error) {
	args := m.Called(ctx, state)
	return args.Bool(0), args.Error(1)
}

type MockQueueEvents struct {
	mock.Mock
}

func (m *MockQueueEvents) Publish(ctx context.Context, event *model.QueueEvent) error {
	return m.Called(ctx, event).Error(0)
}

// fakeCredentials is an in-memory credential store for stateful scenarios.
type fakeCredentials struct {
	mu    sync.Mutex
	creds map[string]model.HostCredential
	now   func() time.Time
}

func newFakeCredentials(now func() time.Time) *fakeCredentials {
	return &fakeCredentials{creds: make(map[string]model.HostCredential), now: now}
}

func (f *fakeCredentials) Save(_ context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp := f.now().Add(expiresIn)
	f.creds[hostID] = model.HostCredential{HostID: hostID, AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: &exp, Scope: scope}
	return nil
}

func (f *fakeCredentials) Load(_ context.Context, hostID string) (*model.HostCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[hostID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCredentials) UpdateAccessToken(_ context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[hostID]
	if !ok {
		return repository.ErrNotFound
	}
	now := f.now()
	exp := now.Add(expiresIn)
	c.AccessToken = accessToken
	c.ExpiresAt = &exp
	c.LastRefreshed = &now
	f.creds[hostID] = c
	return nil
}

func (f *fakeCredentials) RotateRefreshToken(_ context.Context, hostID, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[hostID]
	if !ok {
		return repository.ErrNotFound
	}
	c.RefreshToken = refreshToken
	f.creds[hostID] = c
	return nil
}

func (f *fakeCredentials) Clear(_ context.Context, hostID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, hostID)
	return nil
}

func (f *fakeCredentials) set(c model.HostCredential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds[c.HostID] = c
}

type fakeActivation struct {
	mu  sync.Mutex
	rec *model.ActivationRecord
}

func (f *fakeActivation) Get(context.Context) (*model.ActivationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec == nil {
		return nil, nil
	}
	r := *f.rec
	return &r, nil
}

func (f *fakeActivation) Put(_ context.Context, rec *model.ActivationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *rec
	f.rec = &r
	return nil
}

type fakeQueue struct {
	mu      sync.Mutex
	entries map[string]map[string]*model.QueueEntry
	order   map[string][]string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{entries: make(map[string]map[string]*model.QueueEntry), order: make(map[string][]string)}
}

func (f *fakeQueue) Reserve(_ context.Context, entry *model.QueueEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries[entry.PlaylistID] == nil {
		f.entries[entry.PlaylistID] = make(map[string]*model.QueueEntry)
	}
	if _, ok := f.entries[entry.PlaylistID][entry.ID]; ok {
		return false, nil
	}
	e := *entry
	e.State = model.QueueEntryPending
	f.entries[entry.PlaylistID][entry.ID] = &e
	return true, nil
}

func (f *fakeQueue) Confirm(_ context.Context, playlistID, videoID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[playlistID][videoID]
	if !ok {
		return repository.ErrNotFound
	}
	e.State = model.QueueEntryAdded
	e.PlaylistItemID = itemID
	f.order[playlistID] = append(f.order[playlistID], videoID)
	return nil
}

func (f *fakeQueue) Release(_ context.Context, playlistID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[playlistID][videoID]; ok && e.State == model.QueueEntryPending {
		delete(f.entries[playlistID], videoID)
	}
	return nil
}

func (f *fakeQueue) List(_ context.Context, playlistID string) ([]model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.QueueEntry, 0)
	for _, id := range f.order[playlistID] {
		out = append(out, *f.entries[playlistID][id])
	}
	return out, nil
}

func (f *fakeQueue) Clear(_ context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, playlistID)
	delete(f.order, playlistID)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
