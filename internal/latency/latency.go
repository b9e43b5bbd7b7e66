// Package latency はモックバックエンドの応答遅延をシミュレートする。
//
// 各ストアの操作は実際のI/Oの代わりにWaitで待機する。
// 将来実バックエンドに差し替えても呼び出し側の契約（ブロッキング + context）は変わらない。
package latency

import (
	"context"
	"time"
)

// Op は遅延をシミュレートする操作の種別。
type Op string

const (
	OpSignIn       Op = "sign_in"
	OpSignUp       Op = "sign_up"
	OpListPosts    Op = "list_posts"
	OpGetPost      Op = "get_post"
	OpCreatePost   Op = "create_post"
	OpUpdatePost   Op = "update_post"
	OpDeletePost   Op = "delete_post"
	OpListCourses  Op = "list_courses"
	OpGetCourse    Op = "get_course"
	OpEnroll       Op = "enroll"
	OpSubmitCourse Op = "submit_course"
)

// DefaultDelays は各操作の標準の遅延時間。
func DefaultDelays() map[Op]time.Duration {
	return map[Op]time.Duration{
		OpSignIn:       1000 * time.Millisecond,
		OpSignUp:       1000 * time.Millisecond,
		OpListPosts:    800 * time.Millisecond,
		OpGetPost:      500 * time.Millisecond,
		OpCreatePost:   1000 * time.Millisecond,
		OpUpdatePost:   1000 * time.Millisecond,
		OpDeletePost:   500 * time.Millisecond,
		OpListCourses:  1000 * time.Millisecond,
		OpGetCourse:    500 * time.Millisecond,
		OpEnroll:       1000 * time.Millisecond,
		OpSubmitCourse: 2000 * time.Millisecond,
	}
}

// Simulator は操作ごとの遅延を保持する。
// nilのSimulatorは遅延なしとして振る舞う。
type Simulator struct {
	delays map[Op]time.Duration
}

// New は指定した遅延表でSimulatorを生成する。
func New(delays map[Op]time.Duration) *Simulator {
	d := make(map[Op]time.Duration, len(delays))
	for op, v := range delays {
		d[op] = v
	}
	return &Simulator{delays: d}
}

// NewDefault は標準の遅延表にscaleを掛けたSimulatorを生成する。
// scaleが0以下の場合は遅延なしになる。
func NewDefault(scale float64) *Simulator {
	if scale <= 0 {
		return None()
	}
	d := DefaultDelays()
	for op, v := range d {
		d[op] = time.Duration(float64(v) * scale)
	}
	return &Simulator{delays: d}
}

// None は遅延なしのSimulatorを返す。テスト用。
func None() *Simulator {
	return &Simulator{delays: map[Op]time.Duration{}}
}

// Delay は操作の遅延時間を返す。
func (s *Simulator) Delay(op Op) time.Duration {
	if s == nil {
		return 0
	}
	return s.delays[op]
}

// Wait は操作の遅延時間だけ待機する。
// 待機中にctxがキャンセルされた場合はctx.Err()を返す。
func (s *Simulator) Wait(ctx context.Context, op Op) error {
	d := s.Delay(op)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
