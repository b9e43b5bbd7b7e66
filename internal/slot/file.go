package slot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore はJSONファイルにスロットを保存する。
// ファイルはキーから値へのマップで、複数キーを同じファイルに共存させられる。
// 書き込みは一時ファイルへの書き出しとリネームで行う。
type FileStore struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewFileStore はFileStoreを生成する。
func NewFileStore(path, key string) *FileStore {
	return &FileStore{path: path, key: key}
}

// Load はキーに対応する値を返す。ファイルまたはキーが存在しない場合は (nil, nil)。
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[s.key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

// Save はキーに値を書き込む。dataは有効なJSONであること。
func (s *FileStore) Save(_ context.Context, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("slot value is not valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		// 壊れたファイルは上書きする
		entries = map[string]json.RawMessage{}
	}
	entries[s.key] = json.RawMessage(data)
	return s.writeAll(entries)
}

// Clear はキーを削除する。他のキーが残っていなければファイルごと削除する。
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		entries = map[string]json.RawMessage{}
	}
	delete(entries, s.key)

	if len(entries) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove slot file: %w", err)
		}
		return nil
	}
	return s.writeAll(entries)
}

func (s *FileStore) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}

	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse slot file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) writeAll(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode slot file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp slot file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}
