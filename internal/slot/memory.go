package slot

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore はプロセス内のメモリにスロットを保存する。
// プロセス再起動で消えるため、テストと永続化不要な環境向け。
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load は保存された値を返す。
func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data), nil
}

// Save は値を保存する。
func (s *MemoryStore) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = slices.Clone(data)
	return nil
}

// Clear は値を削除する。
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
