package service

import (
	"context"
	"fmt"
	"log/slog"

	"go_5_course_market/internal/config"
	"go_5_course_market/internal/model"
)

// Notifier は講座完了などの通知フックです。
// 通知の配送自体はこのコアの責務外なので、失敗しても呼び出し元の処理は失敗させません。
type Notifier interface {
	NotifyCourseCompleted(ctx context.Context, user *model.User, course *model.Course) error
}

// --- MailNotifier ---
// 完了メールの文面組み立てはここで行い、配送は Mailer に委譲します。
// SES無効時は LogMailer が配送先になるため、文面はどちらの環境でも同じです。
type MailNotifier struct {
	mailer Mailer
}

func (n *MailNotifier) NotifyCourseCompleted(ctx context.Context, user *model.User, course *model.Course) error {
	subject := fmt.Sprintf("「%s」を修了しました！", course.Title)
	body := fmt.Sprintf(
		"%s さん\n\n講座「%s」の全レッスンを完了しました。おめでとうございます！\n",
		user.Name, course.Title,
	)
	return n.mailer.Send(ctx, user.Email, subject, body)
}

// --- NewNotifier ファクトリ関数 ---
func NewNotifier(cfg *config.Config) Notifier {
	logger := slog.Default()

	var mailer Mailer = &LogMailer{}
	if cfg.SES.Enabled {
		logger.Info("Initializing SES mailer for notifications...")
		mailer = NewSESMailer(cfg)
	} else {
		logger.Info("SES disabled, notifications will be logged only.")
	}
	return &MailNotifier{mailer: mailer}
}
