package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// mockRepo is an in-memory VideoRepository. Jobs run concurrently, so
// every method takes the mutex.
type mockRepo struct {
	mu      sync.Mutex
	nextID  uint
	videos  map[uint]*domain.Video
	updates map[uint][]map[string]interface{}
	deleted []uint
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		videos:  make(map[uint]*domain.Video),
		updates: make(map[uint][]map[string]interface{}),
	}
}

func (r *mockRepo) Create(video *domain.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	video.ID = r.nextID
	if video.Status == "" {
		video.Status = domain.StatusPending
	}
	copied := *video
	r.videos[video.ID] = &copied
	return nil
}

func (r *mockRepo) FindByID(id uint) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *v
	return &copied, nil
}

func (r *mockRepo) List(filter domain.ListFilter) ([]*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Video
	for _, v := range r.videos {
		if filter.Category != "" && v.Category != filter.Category {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}

func (r *mockRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return errors.New("record not found")
	}
	r.updates[id] = append(r.updates[id], fields)
	if s, ok := fields["status"]; ok {
		v.Status = s.(domain.VideoStatus)
	}
	if t, ok := fields["title"]; ok {
		v.Title = t.(string)
	}
	if f, ok := fields["file_path"]; ok {
		v.FilePath = f.(string)
	}
	return nil
}

func (r *mockRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return errors.New("record not found")
	}
	delete(r.videos, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *mockRepo) FindDoneByYouTubeID(youtubeID string) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.YouTubeID == youtubeID && v.Status == domain.StatusDone {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockRepo) FindDoneByTitle(title string) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.Title == title && v.Status == domain.StatusDone {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockRepo) statuses(id uint) []domain.VideoStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.VideoStatus
	for _, fields := range r.updates[id] {
		if s, ok := fields["status"]; ok {
			out = append(out, s.(domain.VideoStatus))
		}
	}
	return out
}

// fakeFetcher scripts metadata and fetch outcomes per URL.
type fakeFetcher struct {
	mu           sync.Mutex
	metadata     map[string]*domain.Metadata
	failures     map[string]error
	fetched      []string
	subtitleOpts *domain.SubtitleOptions
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		metadata: make(map[string]*domain.Metadata),
		failures: make(map[string]error),
	}
}

func (f *fakeFetcher) ResolveMetadata(ctx context.Context, url string) (*domain.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if md, ok := f.metadata[url]; ok {
		return md, nil
	}
	return &domain.Metadata{NativeID: "meta-id", Title: "Some Title", Channel: "Some Channel"}, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchResult, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	err := f.failures[url]
	f.mu.Unlock()

	if opts.OnProgress != nil {
		opts.OnProgress(50.0, "1.2MiB/s", "00:10")
		opts.OnProgress(100.0, "1.2MiB/s", "00:00")
	}
	if err != nil {
		return nil, err
	}
	return &domain.FetchResult{
		FilePath: "/downloads/" + url[len(url)-11:] + ".mp4",
		Title:    "Title " + url[len(url)-11:],
		Channel:  "Canal Teste",
		NativeID: url[len(url)-11:],
		Duration: 120,
	}, nil
}

func (f *fakeFetcher) ListSubtitles(ctx context.Context, url string) (*domain.SubtitleInfo, error) {
	return &domain.SubtitleInfo{
		Title:     "Some Title",
		Manual:    []string{"pt", "en"},
		Automatic: []string{"de", "en", "pt"},
	}, nil
}

func (f *fakeFetcher) FetchSubtitles(ctx context.Context, url string, opts domain.SubtitleOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subtitleOpts = &opts
	return "/downloads/Some_Channel", nil
}

func (f *fakeFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func newTestOrchestrator(repo domain.VideoRepository, fetcher domain.Fetcher) (*Orchestrator, *EventBus) {
	bus := NewEventBus(zap.NewNop())
	return NewOrchestrator(repo, fetcher, bus, zap.NewNop()), bus
}

func TestSubmitSingleVideoPersisted(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()
	orch, _ := newTestOrchestrator(repo, fetcher)

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	ids, result, err := orch.Submit(context.Background(), url, domain.DownloadOptions{
		Category: "Músicas",
	})

	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.Failed)

	video, err := repo.FindByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, video.Status)
	assert.Equal(t, "Title dQw4w9WgXcQ", video.Title)
	assert.NotEmpty(t, video.FilePath)

	// pending -> downloading -> done, in order
	assert.Equal(t, []domain.VideoStatus{
		domain.StatusDownloading,
		domain.StatusDone,
	}, repo.statuses(ids[0]))
}

func TestSubmitPublishesTerminalEvent(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()
	orch, bus := newTestOrchestrator(repo, fetcher)

	// Pre-create nothing; we need the ID before subscribing. Block the
	// fetch behind a gate so we can attach the subscriber first.
	gate := make(chan struct{})
	gated := &gatedFetcher{inner: fetcher, gate: gate, started: make(chan struct{})}
	orch = NewOrchestrator(repo, gated, bus, zap.NewNop())

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	type submitOut struct {
		ids []uint
		err error
	}
	out := make(chan submitOut)
	go func() {
		ids, _, err := orch.Submit(context.Background(), url, domain.DownloadOptions{Category: "Músicas"})
		out <- submitOut{ids, err}
	}()

	<-gated.started
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)
	close(gate)

	res := <-out
	require.NoError(t, res.err)
	require.Len(t, res.ids, 1)

	var terminal *Event
	for ev := range sub.Events {
		ev := ev
		if ev.IsTerminal() {
			terminal = &ev
			break
		}
	}
	require.NotNil(t, terminal)
	assert.Equal(t, EventDone, terminal.Type)
	assert.Equal(t, uint(1), terminal.VideoID)
	assert.NotEmpty(t, terminal.FilePath)
}

// gatedFetcher holds Fetch until gate closes, signalling started once.
type gatedFetcher struct {
	inner   *fakeFetcher
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (g *gatedFetcher) ResolveMetadata(ctx context.Context, url string) (*domain.Metadata, error) {
	return g.inner.ResolveMetadata(ctx, url)
}

func (g *gatedFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchResult, error) {
	g.once.Do(func() { close(g.started) })
	<-g.gate
	return g.inner.Fetch(ctx, url, opts)
}

func (g *gatedFetcher) ListSubtitles(ctx context.Context, url string) (*domain.SubtitleInfo, error) {
	return g.inner.ListSubtitles(ctx, url)
}

func (g *gatedFetcher) FetchSubtitles(ctx context.Context, url string, opts domain.SubtitleOptions) (string, error) {
	return g.inner.FetchSubtitles(ctx, url, opts)
}

func TestSubmitPlaylistExpandsAndContainsFailure(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()

	playlistURL := "https://www.youtube.com/playlist?list=PLtest12345"
	fetcher.metadata[playlistURL] = &domain.Metadata{
		Title: "Festa Infantil",
		Entries: []domain.PlaylistEntry{
			{Index: 1, ID: "aaaaaaaaaaa", URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
			{Index: 2, ID: "bbbbbbbbbbb", URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb"},
			{Index: 3, ID: "ccccccccccc"},
		},
	}
	fetcher.failures["https://www.youtube.com/watch?v=bbbbbbbbbbb"] = fmt.Errorf("video unavailable")

	orch, _ := newTestOrchestrator(repo, fetcher)

	ids, result, err := orch.Submit(context.Background(), playlistURL, domain.DownloadOptions{
		Category: "Desenhos",
	})

	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=bbbbbbbbbbb", result.Failed[0].URL)

	// Bare entry IDs are normalized to watch URLs before fetching.
	assert.Contains(t, fetcher.fetchedURLs(), "https://www.youtube.com/watch?v=ccccccccccc")

	// The failed record is deleted; the two successes survive as done.
	remaining, err := repo.List(domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	for _, v := range remaining {
		assert.Equal(t, domain.StatusDone, v.Status)
	}
	assert.Len(t, repo.deleted, 1)
}

func TestSubmitFailedJobRecordIsDeleted(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	fetcher.failures[url] = fmt.Errorf("sign in to confirm your age")

	orch, _ := newTestOrchestrator(repo, fetcher)

	ids, result, err := orch.Submit(context.Background(), url, domain.DownloadOptions{
		Category: "Histórias",
	})

	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, 0, result.Succeeded)
	assert.Len(t, result.Failed, 1)

	_, findErr := repo.FindByID(ids[0])
	assert.Error(t, findErr, "failed job record should be deleted")
	assert.Equal(t, []uint{ids[0]}, repo.deleted)
}

func TestSubmitWithoutCategorySkipsStore(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()
	orch, _ := newTestOrchestrator(repo, fetcher)

	ids, result, err := orch.Submit(context.Background(),
		"https://youtu.be/dQw4w9WgXcQ", domain.DownloadOptions{})

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, repo.videos)
	assert.Empty(t, repo.updates)
}

func TestSubmitRejectsUnrecognizedURL(t *testing.T) {
	orch, _ := newTestOrchestrator(newMockRepo(), newFakeFetcher())

	_, _, err := orch.Submit(context.Background(),
		"https://vimeo.com/123456", domain.DownloadOptions{})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)
}

func TestSubmitRejectsInvalidOptions(t *testing.T) {
	orch, _ := newTestOrchestrator(newMockRepo(), newFakeFetcher())

	_, _, err := orch.Submit(context.Background(),
		"https://youtu.be/dQw4w9WgXcQ", domain.DownloadOptions{Category: "Terror"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
}

func TestSubmitVideoURLWithListParamIsSingleItem(t *testing.T) {
	repo := newMockRepo()
	fetcher := newFakeFetcher()
	orch, _ := newTestOrchestrator(repo, fetcher)

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLtest12345"
	ids, result, err := orch.Submit(context.Background(), url, domain.DownloadOptions{
		Category: "Educação",
	})

	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{url}, fetcher.fetchedURLs())
}

func TestSubtitles(t *testing.T) {
	fetcher := newFakeFetcher()
	orch, _ := newTestOrchestrator(newMockRepo(), fetcher)

	info, err := orch.Subtitles(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, []string{"pt", "en"}, info.Manual)
	assert.Equal(t, []string{"de", "en", "pt"}, info.Automatic)

	_, err = orch.Subtitles(context.Background(), "https://vimeo.com/123")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDownloadSubtitlesAppliesDefaults(t *testing.T) {
	fetcher := newFakeFetcher()
	orch, _ := newTestOrchestrator(newMockRepo(), fetcher)

	dir, err := orch.DownloadSubtitles(context.Background(),
		"https://youtu.be/dQw4w9WgXcQ", domain.SubtitleOptions{AutoSubs: true})
	require.NoError(t, err)
	assert.Equal(t, "/downloads/Some_Channel", dir)

	require.NotNil(t, fetcher.subtitleOpts)
	assert.Equal(t, "pt,en", fetcher.subtitleOpts.Langs)
	assert.Equal(t, "./downloads", fetcher.subtitleOpts.OutputDir)
	assert.True(t, fetcher.subtitleOpts.AutoSubs)

	_, err = orch.DownloadSubtitles(context.Background(), "not a url", domain.SubtitleOptions{})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInfo(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.metadata["https://youtu.be/dQw4w9WgXcQ"] = &domain.Metadata{
		NativeID: "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Channel:  "Rick Astley",
		Duration: 212,
	}
	orch, _ := newTestOrchestrator(newMockRepo(), fetcher)

	md, err := orch.Info(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", md.Title)
	assert.Equal(t, 212, md.Duration)

	_, err = orch.Info(context.Background(), "not a url")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
