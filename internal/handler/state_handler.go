package handler

import (
	"net/http"

	"github.com/hitoshi/bloghub/internal/model"
)

// StatusReporter は実行中フラグと直近の失敗理由を返す。
// 各ストアが実装する。
type StatusReporter interface {
	Loading() bool
	LastError() string
}

// SessionStatusReporter はセッションストアの状態も返す。
type SessionStatusReporter interface {
	StatusReporter
	State() model.SessionState
	Role() model.Role
}

type storeStatus struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type sessionStatus struct {
	storeStatus
	State model.SessionState `json:"state"`
	Role  model.Role         `json:"role,omitempty"`
}

type stateResponse struct {
	Session   sessionStatus `json:"session"`
	Posts     storeStatus   `json:"posts"`
	Courses   storeStatus   `json:"courses"`
	Authoring storeStatus   `json:"authoring"`
}

// StateHandler は全ストアの状態を返すHTTPハンドラー。
type StateHandler struct {
	session   SessionStatusReporter
	posts     StatusReporter
	courses   StatusReporter
	authoring StatusReporter
}

// NewStateHandler はStateHandlerを生成する。
func NewStateHandler(session SessionStatusReporter, posts, courses, authoring StatusReporter) *StateHandler {
	return &StateHandler{
		session:   session,
		posts:     posts,
		courses:   courses,
		authoring: authoring,
	}
}

func statusOf(s StatusReporter) storeStatus {
	return storeStatus{Loading: s.Loading(), Error: s.LastError()}
}

// State は各ストアの実行中フラグと直近の失敗理由を返す。
// GET /api/state
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{
		Session: sessionStatus{
			storeStatus: statusOf(h.session),
			State:       h.session.State(),
			Role:        h.session.Role(),
		},
		Posts:     statusOf(h.posts),
		Courses:   statusOf(h.courses),
		Authoring: statusOf(h.authoring),
	})
}

// Health はプロセスの稼働状態を返す。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
