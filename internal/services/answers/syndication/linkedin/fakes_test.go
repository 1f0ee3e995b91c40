package linkedin

import (
	"context"
	"sync"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domain.SocialToken
	puts   int
}

func newMemoryTokenStore(tokens ...domain.SocialToken) *memoryTokenStore {
	store := &memoryTokenStore{tokens: make(map[string]domain.SocialToken)}
	for _, token := range tokens {
		store.tokens[token.Provider] = token
	}
	return store
}

func (s *memoryTokenStore) GetSocialToken(_ context.Context, provider string) (domain.SocialToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[provider]
	if !ok {
		return domain.SocialToken{}, domain.ErrNotFound
	}
	return token, nil
}

func (s *memoryTokenStore) PutSocialToken(_ context.Context, token domain.SocialToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Provider] = token
	s.puts++
	return nil
}

type staticTokens string

func (s staticTokens) AccessToken(context.Context) (string, error) {
	return string(s), nil
}
