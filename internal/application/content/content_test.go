package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-content-api/internal/config"
	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/infrastructure/messaging"
	"social-content-api/internal/infrastructure/persistence/redis"
	"social-content-api/internal/infrastructure/publishing/instagram"
	"social-content-api/internal/infrastructure/storage"
	"social-content-api/internal/workflow/pipeline"
	"social-content-api/internal/workflow/prompt"
	apperrors "social-content-api/pkg/errors"
)

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	models  []string
	reply   func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, text string, opts llm.CompleteOptions) (*llm.Completion, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, text)
	f.models = append(f.models, opts.Model)
	f.mu.Unlock()

	out, err := f.reply(text)
	if err != nil {
		return nil, err
	}
	return &llm.Completion{Text: out, Model: opts.Model}, nil
}

// echoCompleter 正文请求原样返回提示词，标签请求返回固定数组
func echoCompleter() *fakeCompleter {
	return &fakeCompleter{reply: func(text string) (string, error) {
		switch {
		case strings.HasPrefix(text, "Given the following social media post content"):
			return `["#cat","story"]`, nil
		case strings.HasPrefix(text, "Read the Instagram post below"):
			return "A cat telling stories by a barn", nil
		default:
			return text, nil
		}
	}}
}

type fakeImages struct {
	calls int
	opts  llm.ImageOptions
	err   error
}

func (f *fakeImages) GenerateImage(_ context.Context, _ string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GeneratedImage{URL: "https://provider.example.com/tmp.png"}, nil
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchImage(context.Context, string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	missing []string
	puts    map[string]string
	folders *storage.FolderPage
	files   map[string][]storage.Object
	listErr error
}

func (f *fakeStore) Put(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[key] = contentType
	return "https://bucket.example.com/" + key, nil
}

func (f *fakeStore) ListFolders(context.Context, string, int, string) (*storage.FolderPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.folders, nil
}

func (f *fakeStore) ListFiles(_ context.Context, folder string) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[folder], nil
}

func (f *fakeStore) Missing() []string { return f.missing }
func (f *fakeStore) Provider() string  { return "s3" }

type fakePublisher struct {
	missing    []string
	localPath  string
	existed    bool
	waitErr    error
	publishErr error
}

func (f *fakePublisher) Missing() []string { return f.missing }

func (f *fakePublisher) CreateContainer(_ context.Context, localPath string) (string, error) {
	f.localPath = localPath
	_, err := os.Stat(localPath)
	f.existed = err == nil
	return "container-1", nil
}

func (f *fakePublisher) WaitUntilFinished(context.Context, string) (int, error) {
	return 3, f.waitErr
}

func (f *fakePublisher) Publish(context.Context, string, string) (*instagram.PublishResult, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &instagram.PublishResult{PostID: "42", Permalink: instagram.Permalink("42")}, nil
}

type testDeps struct {
	completer *fakeCompleter
	images    *fakeImages
	fetcher   *fakeFetcher
	store     *fakeStore
	publisher *fakePublisher
	cfg       *config.Config
}

func newTestService(t *testing.T, deps *testDeps) *Service {
	t.Helper()
	if deps.completer == nil {
		deps.completer = echoCompleter()
	}
	if deps.images == nil {
		deps.images = &fakeImages{}
	}
	if deps.fetcher == nil {
		deps.fetcher = &fakeFetcher{data: pngBytes(t, 64, 32)}
	}
	if deps.store == nil {
		deps.store = &fakeStore{}
	}
	if deps.publisher == nil {
		deps.publisher = &fakePublisher{}
	}
	if deps.cfg == nil {
		deps.cfg = &config.Config{LLM: config.LLMConfig{ContentModel: "content-model", IdeaModel: "idea-model"}}
	}

	fsys, err := prompt.NewFS("")
	require.NoError(t, err)

	svc := NewService(deps.completer, deps.images, deps.fetcher, prompt.NewTemplateCache(fsys),
		prompt.NewNamespaceStore(fsys), deps.store, deps.publisher, deps.cfg)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	svc.randomHex = func(int) (string, error) { return "0123456789abcdef", nil }
	svc.tempDir = t.TempDir()
	return svc
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreateContent(t *testing.T) {
	deps := &testDeps{}
	svc := newTestService(t, deps)

	res, err := svc.CreateContent(context.Background(), ContentRequest{
		Prompt:    "Write a story about a cat.",
		Persona:   "Storyteller",
		Sentiment: "Cheerful",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Persona: Storyteller")
	assert.Contains(t, res.Message, "Sentiment: Cheerful")
	assert.Contains(t, res.Message, "Write a story about a cat.")
	assert.Equal(t, []string{"#cat", "#story"}, res.Hashtags)
	assert.Empty(t, res.ImagePrompt)

	require.Len(t, deps.completer.prompts, 2)
	assert.Contains(t, deps.completer.prompts[1], res.Message)
	assert.Equal(t, []string{"content-model", "content-model"}, deps.completer.models)
}

func TestCreateContentDefaults(t *testing.T) {
	t.Run("built-in defaults", func(t *testing.T) {
		svc := newTestService(t, &testDeps{})
		res, err := svc.CreateContent(context.Background(), ContentRequest{Prompt: "eggs"})
		require.NoError(t, err)
		assert.Contains(t, res.Message, "Persona: "+DefaultContentPersona)
		assert.Contains(t, res.Message, "Sentiment: "+DefaultContentSentiment)
	})

	t.Run("environment defaults win over built-in", func(t *testing.T) {
		cfg := &config.Config{Content: config.ContentConfig{DefaultPersona: "Env persona"}}
		svc := newTestService(t, &testDeps{cfg: cfg})
		res, err := svc.CreateContent(context.Background(), ContentRequest{Prompt: "eggs"})
		require.NoError(t, err)
		assert.Contains(t, res.Message, "Persona: Env persona")
		assert.Contains(t, res.Message, "Sentiment: "+DefaultContentSentiment)
	})
}

func TestCreateContentFailures(t *testing.T) {
	t.Run("missing prompt makes no model call", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).CreateContent(context.Background(), ContentRequest{Persona: "x"})
		require.Error(t, err)
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
		assert.Equal(t, MissingPromptMessage, appErr.Message)
		assert.Empty(t, deps.completer.prompts)
	})

	t.Run("whitespace prompt is sent to the model", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).CreateContent(context.Background(), ContentRequest{Prompt: "   "})
		require.NoError(t, err)
		require.NotEmpty(t, deps.completer.prompts)
	})

	t.Run("missing key is passed through", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(string) (string, error) {
			return "", apperrors.Configuration(llm.MissingCompletionKeyMessage)
		}}}
		_, err := newTestService(t, deps).CreateContent(context.Background(), ContentRequest{Prompt: "p"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.CodeConfiguration, appErr.Code)
		assert.Equal(t, "OPENAI_API_KEY not set in environment.", appErr.Message)
	})

	t.Run("upstream failure keeps details", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(string) (string, error) {
			return "", apperrors.Upstream(errors.New("connection refused"), "completion failed")
		}}}
		_, err := newTestService(t, deps).CreateContent(context.Background(), ContentRequest{Prompt: "p"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, "Failed to contact OpenAI", appErr.Message)
		assert.Equal(t, "connection refused", appErr.Details())
		assert.Equal(t, 500, appErr.HTTPStatus)
	})

	t.Run("hashtag failure degrades to empty list", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(text string) (string, error) {
			if strings.HasPrefix(text, "Given the following") {
				return "", errors.New("rate limited")
			}
			return "post body", nil
		}}}
		res, err := newTestService(t, deps).CreateContent(context.Background(), ContentRequest{Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "post body", res.Message)
		assert.NotNil(t, res.Hashtags)
		assert.Empty(t, res.Hashtags)
	})
}

func TestCreatePostContent(t *testing.T) {
	t.Run("unknown namespace", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).CreatePostContent(context.Background(), ContentRequest{Namespace: "nope", Prompt: "p"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, 404, appErr.HTTPStatus)
		assert.Equal(t, "Intellectual property 'nope' not found", appErr.Message)
		assert.Empty(t, deps.completer.prompts)
	})

	t.Run("three sequential calls", func(t *testing.T) {
		deps := &testDeps{}
		res, err := newTestService(t, deps).CreatePostContent(context.Background(), ContentRequest{
			Namespace: "peck-strut",
			Prompt:    "Henrietta laid her first egg",
		})
		require.NoError(t, err)
		assert.Contains(t, res.Message, "Henrietta laid her first egg")
		assert.Equal(t, []string{"#cat", "#story"}, res.Hashtags)
		assert.Equal(t, "A cat telling stories by a barn", res.ImagePrompt)

		require.Len(t, deps.completer.prompts, 3)
		assert.Contains(t, deps.completer.prompts[2], res.Message)
	})

	t.Run("image prompt failure degrades to empty string", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(text string) (string, error) {
			if strings.HasPrefix(text, "Read the Instagram post below") {
				return "", errors.New("timeout")
			}
			return "[]", nil
		}}}
		res, err := newTestService(t, deps).CreatePostContent(context.Background(), ContentRequest{Namespace: "peck-strut", Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "", res.ImagePrompt)
	})
}

func TestGenerateIdeas(t *testing.T) {
	t.Run("root template with defaults", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(string) (string, error) {
			return "Sure!\n```json\n[\"Coop tour\", {\"headline\":\"Egg math\",\"description\":\"Count the week\"}]\n```", nil
		}}}
		res, err := newTestService(t, deps).GenerateIdeas(context.Background(), IdeaRequest{})
		require.NoError(t, err)
		assert.False(t, res.Degraded)
		require.Len(t, res.Ideas, 2)
		assert.Equal(t, "Coop tour", res.Ideas[0].Headline)
		assert.Equal(t, "Count the week", res.Ideas[1].Description)

		sent := deps.completer.prompts[0]
		assert.Contains(t, sent, "Platform: Instagram")
		assert.Contains(t, sent, "Topic: general interest")
		assert.Contains(t, sent, "Suggest 5 distinct post ideas")
		assert.Contains(t, sent, "Today's date: 2023-11-1")
		assert.True(t, strings.HasSuffix(sent, ideaShapeInstruction))
		assert.Equal(t, []string{"idea-model"}, deps.completer.models)
	})

	t.Run("namespaced raw text fallback", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(string) (string, error) {
			return "Here are some thoughts about hens", nil
		}}}
		res, err := newTestService(t, deps).CreateIdeas(context.Background(), IdeaRequest{Namespace: "peck-strut", Count: 3})
		require.NoError(t, err)
		assert.True(t, res.Degraded)
		assert.Equal(t, "Here are some thoughts about hens", res.Ideas[0].Headline)
		assert.Contains(t, deps.completer.prompts[0], "Suggest 3 post ideas")
	})

	t.Run("namespaced unknown id makes no call", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).CreateIdeas(context.Background(), IdeaRequest{Namespace: "../etc"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNamespaceNotFound))
		assert.Empty(t, deps.completer.prompts)
	})

	t.Run("namespaced upstream failure", func(t *testing.T) {
		deps := &testDeps{completer: &fakeCompleter{reply: func(string) (string, error) {
			return "", apperrors.Upstream(errors.New("502 bad gateway"), "completion failed")
		}}}
		_, err := newTestService(t, deps).CreateIdeas(context.Background(), IdeaRequest{Namespace: "peck-strut"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, "Failed to generate ideas", appErr.Message)
		assert.Equal(t, "502 bad gateway", appErr.Details())
	})
}

func TestProviderSize(t *testing.T) {
	for name, want := range map[string]string{
		"square":    "1024x1024",
		"portrait":  "1024x1792",
		"landscape": "1792x1024",
	} {
		got, ok := ProviderSize(name)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ProviderSize("panorama")
	assert.False(t, ok)
}

func TestGenerateImage(t *testing.T) {
	t.Run("invalid size makes no model call", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).GenerateImage(context.Background(), ImageRequest{
			Namespace: "peck-strut", Message: "hen", Size: "panorama",
		})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, 400, appErr.HTTPStatus)
		assert.Equal(t, InvalidSizeMessage, appErr.Message)
		assert.Zero(t, deps.images.calls)
	})

	t.Run("missing message", func(t *testing.T) {
		deps := &testDeps{}
		_, err := newTestService(t, deps).GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut"})
		assert.Equal(t, MissingMessageMessage, apperrors.AsAppError(err).Message)
		assert.Zero(t, deps.images.calls)
	})

	t.Run("storage not configured", func(t *testing.T) {
		deps := &testDeps{store: &fakeStore{missing: []string{"S3_BUCKET"}}}
		_, err := newTestService(t, deps).GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut", Message: "hen"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, apperrors.CodeConfiguration, appErr.Code)
		assert.Contains(t, appErr.Details(), "S3_BUCKET")
		assert.Zero(t, deps.images.calls)
	})

	t.Run("uploads original and thumbnail", func(t *testing.T) {
		deps := &testDeps{}
		res, err := newTestService(t, deps).GenerateImage(context.Background(), ImageRequest{
			Namespace: "peck-strut", Message: "hen in a hat", Size: "portrait",
		})
		require.NoError(t, err)

		folder := "v1-content-peck-strut-1700000000000-0123456789abcdef"
		assert.Equal(t, folder, res.Folder)
		assert.Equal(t, "https://bucket.example.com/"+folder+"/original.png", res.OriginalURL)
		assert.Equal(t, "https://bucket.example.com/"+folder+"/thumbnail.png", res.ThumbnailURL)
		assert.Equal(t, "1024x1792", deps.images.opts.Size)
		assert.Equal(t, 1, deps.fetcher.calls)
		assert.Len(t, deps.store.puts, 2)
	})

	t.Run("provider failure", func(t *testing.T) {
		deps := &testDeps{images: &fakeImages{err: apperrors.Upstream(errors.New("content policy violation"), "image generation failed")}}
		_, err := newTestService(t, deps).GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut", Message: "hen"})
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, "Failed to generate image", appErr.Message)
		assert.Equal(t, "content policy violation", appErr.Details())
		assert.Empty(t, deps.store.puts)
	})
}

func TestPublishToInstagram(t *testing.T) {
	req := PublishRequest{Description: "Morning in the coop", ImageURL: "https://cdn.example.com/hen.png"}

	t.Run("success removes temp file", func(t *testing.T) {
		deps := &testDeps{fetcher: &fakeFetcher{data: pngBytes(t, 1600, 900)}}
		res, err := newTestService(t, deps).PublishToInstagram(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "42", res.PostID)
		assert.Equal(t, "https://www.instagram.com/p/42/", res.Permalink)

		assert.True(t, deps.publisher.existed, "temp file exists while uploading")
		assert.Regexp(t, `instagram_1700000000000\.jpg$`, deps.publisher.localPath)
		_, statErr := os.Stat(deps.publisher.localPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("publish failure still removes temp file", func(t *testing.T) {
		deps := &testDeps{publisher: &fakePublisher{publishErr: errors.New("Media ID is not available")}}
		_, err := newTestService(t, deps).PublishToInstagram(context.Background(), req)
		require.Error(t, err)
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, "Failed to post to Instagram", appErr.Message)
		assert.Equal(t, "Failed to publish to Instagram: Media ID is not available", appErr.Details())

		require.NotEmpty(t, deps.publisher.localPath)
		_, statErr := os.Stat(deps.publisher.localPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("poll timeout is distinguishable", func(t *testing.T) {
		timeout := &instagram.ProcessingError{Status: instagram.StatusInProgress, Err: pipeline.ErrPollTimeout}
		deps := &testDeps{publisher: &fakePublisher{waitErr: timeout}}
		_, err := newTestService(t, deps).PublishToInstagram(context.Background(), req)
		assert.ErrorIs(t, err, pipeline.ErrPollTimeout)
		assert.Equal(t, "Failed to upload to Instagram: Media processing failed with status: IN_PROGRESS",
			apperrors.AsAppError(err).Details())
	})

	t.Run("missing credentials before download", func(t *testing.T) {
		deps := &testDeps{publisher: &fakePublisher{missing: []string{"INSTAGRAM_ACCESS_TOKEN", "INSTAGRAM_BUSINESS_ACCOUNT_ID"}}}
		_, err := newTestService(t, deps).PublishToInstagram(context.Background(), req)
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, "Instagram credentials not configured", appErr.Message)
		assert.Equal(t, "Missing environment variables: INSTAGRAM_ACCESS_TOKEN, INSTAGRAM_BUSINESS_ACCOUNT_ID", appErr.Details())
		assert.Zero(t, deps.fetcher.calls)
	})

	t.Run("download failure", func(t *testing.T) {
		deps := &testDeps{fetcher: &fakeFetcher{err: apperrors.Upstream(errors.New("unexpected status 404"), "image download failed")}}
		_, err := newTestService(t, deps).PublishToInstagram(context.Background(), req)
		assert.Equal(t, "Failed to download image: unexpected status 404", apperrors.AsAppError(err).Details())
		assert.Empty(t, deps.publisher.localPath)
	})
}

func TestValidatePublish(t *testing.T) {
	tests := []struct {
		name    string
		req     PublishRequest
		wantErr bool
	}{
		{name: "valid", req: PublishRequest{Description: "hi", ImageURL: "https://x.example.com/a.png"}},
		{name: "empty description", req: PublishRequest{ImageURL: "https://x.example.com/a.png"}, wantErr: true},
		{name: "caption too long", req: PublishRequest{Description: strings.Repeat("鸡", 2201), ImageURL: "https://x.example.com/a.png"}, wantErr: true},
		{name: "caption at limit", req: PublishRequest{Description: strings.Repeat("鸡", 2200), ImageURL: "http://x.example.com/a.png"}},
		{name: "relative url", req: PublishRequest{Description: "hi", ImageURL: "/a.png"}, wantErr: true},
		{name: "ftp url", req: PublishRequest{Description: "hi", ImageURL: "ftp://x.example.com/a.png"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublish(tt.req)
			if tt.wantErr {
				assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestListImages(t *testing.T) {
	store := &fakeStore{
		folders: &storage.FolderPage{
			Folders:    []string{"v1-content-a/", "v1-content-b/", "v1-content-c/"},
			NextCursor: "token-2",
			Total:      3,
		},
		files: map[string][]storage.Object{
			"v1-content-a/": {
				{Key: "v1-content-a/original.png", URL: "https://b/a/o"},
				{Key: "v1-content-a/thumbnail.png", URL: "https://b/a/t"},
			},
			"v1-content-b/": {{Key: "v1-content-b/original.png", URL: "https://b/b/o"}},
			"v1-content-c/": {
				{Key: "v1-content-c/thumbnail.png", URL: "https://b/c/t"},
				{Key: "v1-content-c/original.png", URL: "https://b/c/o"},
			},
		},
	}
	svc := newTestService(t, &testDeps{store: store})

	page, err := svc.ListImages(context.Background(), "", DefaultListLimit)
	require.NoError(t, err)
	assert.Equal(t, []ImageResult{
		{OriginalURL: "https://b/a/o", ThumbnailURL: "https://b/a/t", Folder: "v1-content-a"},
		{OriginalURL: "https://b/c/o", ThumbnailURL: "https://b/c/t", Folder: "v1-content-c"},
	}, page.Images)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "token-2", *page.NextCursor)
	assert.Equal(t, 3, page.Total)

	store.folders = &storage.FolderPage{}
	page, err = svc.ListImages(context.Background(), "token-2", 5)
	require.NoError(t, err)
	assert.Nil(t, page.NextCursor)
	assert.Empty(t, page.Images)
}

func TestListImagesRejects(t *testing.T) {
	svc := newTestService(t, &testDeps{store: &fakeStore{missing: []string{"AWS_REGION"}}})

	_, err := svc.ListImages(context.Background(), "", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = svc.ListImages(context.Background(), "", 1001)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = svc.ListImages(context.Background(), "", 20)
	assert.Equal(t, "S3 credentials missing in environment.", apperrors.AsAppError(err).Message)
}

type mapCache struct {
	entries     map[string][]byte
	loads       int
	invalidated []string
}

func (c *mapCache) GetOrLoad(_ context.Context, key string, _ time.Duration, loader func() (any, error)) ([]byte, error) {
	if raw, ok := c.entries[key]; ok {
		return raw, nil
	}
	c.loads++
	v, err := loader()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.entries[key] = raw
	return raw, nil
}

func (c *mapCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func TestListImagesCached(t *testing.T) {
	store := &fakeStore{
		folders: &storage.FolderPage{Folders: []string{"v1-content-a/"}, NextCursor: "next", Total: 1},
		files: map[string][]storage.Object{
			"v1-content-a/": {
				{Key: "v1-content-a/original.png", URL: "https://b/a/o"},
				{Key: "v1-content-a/thumbnail.png", URL: "https://b/a/t"},
			},
		},
	}
	cache := &mapCache{entries: map[string][]byte{}}
	svc := newTestService(t, &testDeps{store: store}).WithPageCache(cache, time.Minute)

	first, err := svc.ListImages(context.Background(), "", 10)
	require.NoError(t, err)
	second, err := svc.ListImages(context.Background(), "", 10)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, first, second)
	assert.Contains(t, cache.entries, "images:list:s3:10:")
	require.NotNil(t, second.NextCursor)
	assert.Equal(t, "next", *second.NextCursor)

	_, err = svc.GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut", Message: "a hen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"images:list:"}, cache.invalidated)
	assert.Empty(t, cache.entries)

	_, err = svc.ListImages(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)
}

func newListStore() *fakeStore {
	return &fakeStore{
		folders: &storage.FolderPage{Folders: []string{"v1-content-a/"}, Total: 1},
		files: map[string][]storage.Object{
			"v1-content-a/": {
				{Key: "v1-content-a/original.png", URL: "https://b/a/o"},
				{Key: "v1-content-a/thumbnail.png", URL: "https://b/a/t"},
			},
		},
	}
}

func TestListImagesCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = client.Close() })

	svc := newTestService(t, &testDeps{store: newListStore()}).WithPageCache(redis.NewCache(client), time.Minute)

	page, err := svc.ListImages(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.True(t, mr.Exists("images:list:s3:10:"))

	mr.Close()

	page, err = svc.ListImages(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "v1-content-a", page.Images[0].Folder)
}

func TestListImagesCachedStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	store := &fakeStore{listErr: errors.New("AccessDenied")}
	svc := newTestService(t, &testDeps{store: store}).WithPageCache(redis.NewCache(client), time.Minute)

	_, err := svc.ListImages(context.Background(), "", 10)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, "Failed to list S3 images", appErr.Message)
	assert.Equal(t, "AccessDenied", appErr.Details())
	assert.False(t, mr.Exists("images:list:s3:10:"))
}

type recordingEvents struct {
	images []messaging.ImageStored
	posts  []messaging.PostPublished
	err    error
}

func (e *recordingEvents) PublishImageStored(_ context.Context, _ string, evt messaging.ImageStored) (string, error) {
	e.images = append(e.images, evt)
	return "1-0", e.err
}

func (e *recordingEvents) PublishPostPublished(_ context.Context, evt messaging.PostPublished) (string, error) {
	e.posts = append(e.posts, evt)
	return "1-0", e.err
}

func TestContentEvents(t *testing.T) {
	t.Run("image stored", func(t *testing.T) {
		events := &recordingEvents{}
		svc := newTestService(t, &testDeps{}).WithEvents(events)

		res, err := svc.GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut", Message: "hen"})
		require.NoError(t, err)
		require.Len(t, events.images, 1)
		assert.Equal(t, res.Folder, events.images[0].Folder)
		assert.Equal(t, res.ThumbnailURL, events.images[0].ThumbnailURL)
		assert.Equal(t, "s3", events.images[0].Provider)
	})

	t.Run("post published", func(t *testing.T) {
		events := &recordingEvents{}
		deps := &testDeps{fetcher: &fakeFetcher{data: pngBytes(t, 400, 400)}}
		svc := newTestService(t, deps).WithEvents(events)

		res, err := svc.PublishToInstagram(context.Background(), PublishRequest{
			Description: "Morning in the coop", ImageURL: "https://cdn.example.com/hen.png",
		})
		require.NoError(t, err)
		require.Len(t, events.posts, 1)
		assert.Equal(t, res.PostID, events.posts[0].PostID)
		assert.Equal(t, "https://cdn.example.com/hen.png", events.posts[0].ImageURL)
	})

	t.Run("event failure does not fail request", func(t *testing.T) {
		events := &recordingEvents{err: errors.New("redis down")}
		svc := newTestService(t, &testDeps{}).WithEvents(events)

		_, err := svc.GenerateImage(context.Background(), ImageRequest{Namespace: "peck-strut", Message: "hen"})
		require.NoError(t, err)
		assert.Len(t, events.images, 1)
	})

	t.Run("failed publish emits nothing", func(t *testing.T) {
		events := &recordingEvents{}
		deps := &testDeps{publisher: &fakePublisher{publishErr: errors.New("Media ID is not available")}}
		_, err := newTestService(t, deps).WithEvents(events).PublishToInstagram(context.Background(), PublishRequest{
			Description: "x", ImageURL: "https://cdn.example.com/hen.png",
		})
		require.Error(t, err)
		assert.Empty(t, events.posts)
	})
}
