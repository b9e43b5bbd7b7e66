package auth

import (
	"context"
	"log/slog"
)

// ResetNotifier はパスワード再設定の案内を送る。
type ResetNotifier interface {
	SendReset(ctx context.Context, email string) error
}

// LogResetNotifier は送信の代わりに構造化ログを出力する。
type LogResetNotifier struct {
	baseURL string
}

// NewLogResetNotifier はLogResetNotifierを生成する。
// baseURLは案内に含める再設定ページのURLの基点。
func NewLogResetNotifier(baseURL string) *LogResetNotifier {
	return &LogResetNotifier{baseURL: baseURL}
}

// SendReset は再設定の案内をログに出力する。
func (n *LogResetNotifier) SendReset(_ context.Context, email string) error {
	slog.Info("password reset requested",
		slog.String("email", email),
		slog.String("reset_url", n.baseURL+"/reset-password"),
	)
	return nil
}
