// Package pending はストア操作の実行中フラグと直近の失敗理由を管理する。
//
// 各ストアの非同期操作は次の形で Tracker を使う。
//
//	func (s *Store) Do(ctx context.Context) (err error) {
//		defer s.tracker.Track("do", &err)()
//		...
//	}
//
// 戻り値の関数は成功・失敗・キャンセル・panicのいずれの経路でも実行中フラグを解除する。
package pending

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bloghub/internal/model"
)

// Observer は操作の完了を受け取る。メトリクス収集に使う。
type Observer interface {
	ObserveOperation(store, op string, d time.Duration, err error)
}

// Tracker はひとつのストアの実行中操作数と直近の失敗理由を保持する。
type Tracker struct {
	store    string
	observer Observer

	mu       sync.Mutex
	inflight int
	lastErr  string
}

// NewTracker はTrackerを生成する。observerはnilでもよい。
func NewTracker(store string, observer Observer) *Tracker {
	return &Tracker{store: store, observer: observer}
}

// Track は操作の開始を記録し、完了時に呼び出す関数を返す。
// 返された関数は必ずdeferで直接呼び出すこと（panicの回収に必要）。
//
// 開始時に直近の失敗理由をクリアする。
// panicが発生した場合は回収してINTERNAL_ERRORに変換し、*errpに設定する。
func (t *Tracker) Track(op string, errp *error) func() {
	start := time.Now()

	t.mu.Lock()
	t.inflight++
	t.lastErr = ""
	t.mu.Unlock()

	return func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in store operation",
				slog.String("store", t.store),
				slog.String("op", op),
				slog.Any("panic", r),
			)
			*errp = model.NewInternalError()
		}

		err := *errp

		t.mu.Lock()
		t.inflight--
		if err != nil {
			t.lastErr = reason(err)
		}
		t.mu.Unlock()

		if t.observer != nil {
			t.observer.ObserveOperation(t.store, op, time.Since(start), err)
		}
	}
}

// Loading は実行中の操作があるかどうかを返す。
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight > 0
}

// LastError は直近に失敗した操作の理由を返す。失敗していなければ空文字。
func (t *Tracker) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// ClearError は直近の失敗理由をクリアする。
func (t *Tracker) ClearError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = ""
}

// reason はエラーから利用者向けの失敗理由を取り出す。
// APIErrorの場合はメッセージ、キャンセルの場合は固定文言を使う。
func reason(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "操作がキャンセルされました。"
	}
	return err.Error()
}
