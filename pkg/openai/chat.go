package openai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"simple-openai-go/internal/cache"
	"simple-openai-go/internal/transport"
	"simple-openai-go/pkg/domain/chat"
)

const chatCompletionsPath = "/v1/chat/completions"

const defaultCacheTTL = 10 * time.Minute

// ChatService creates chat completions.
type ChatService interface {
	// Create sends req without streaming. The stream flag on req is ignored.
	Create(ctx context.Context, req chat.ChatRequest) (*chat.Chat, error)
	// CreateStream sends req with streaming on and returns the chunks as
	// they arrive. The channel closes after the final chunk.
	CreateStream(ctx context.Context, req chat.ChatRequest) (<-chan ChatStreamResult, error)
}

type chatService struct {
	transport *transport.Client
	cache     cache.ExactCache
	cacheTTL  time.Duration
	versionID string
	logger    *zap.Logger
}

func newChatService(p *Provider) ChatService {
	s := &chatService{
		transport: p.transport,
		cache:     p.cache,
		logger:    p.logger.Named("chat"),
	}
	if cs := p.cfg.Cache; cs != nil {
		s.cacheTTL = cs.TTL
		if s.cacheTTL <= 0 {
			s.cacheTTL = defaultCacheTTL
		}
		s.versionID = cs.VersionID
	}
	return s
}

func (s *chatService) Create(ctx context.Context, req chat.ChatRequest) (*chat.Chat, error) {
	req.Stream = nil
	req.StreamOptions = nil

	var key string
	if s.cache != nil {
		if k, err := cache.BuildExactCacheKeyFromChatRequest(req, s.versionID); err == nil {
			key = k.String()
			// cache failures are logged by the cache and treated as misses
			if data, ok, _ := s.cache.Get(ctx, key); ok {
				var out chat.Chat
				if err := s.transport.Codec().Unmarshal(data, &out); err == nil {
					return &out, nil
				}
			}
		}
	}

	var out chat.Chat
	err := s.transport.Do(ctx, transport.Request{
		Path:  chatCompletionsPath,
		Body:  req,
		Model: req.Model,
	}, &out)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if data, err := s.transport.Codec().Marshal(&out); err == nil {
			_ = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}
	return &out, nil
}

func (s *chatService) CreateStream(ctx context.Context, req chat.ChatRequest) (<-chan ChatStreamResult, error) {
	return transport.Stream[chat.ChatChunk](ctx, s.transport, transport.Request{
		Path:  chatCompletionsPath,
		Body:  req.WithStream(true),
		Model: req.Model,
	})
}
