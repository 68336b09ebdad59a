// notify доставляет пользователю служебные сообщения: приветствие после
// регистрации и ссылку сброса пароля. Доставка best-effort: вызывающий код
// логирует ошибку и не прерывает основную операцию.
package notify

//go:generate mockgen -destination=../../mocks/mock_notifier.go -package=mocks github.com/pribylovaa/propertia-auth/internal/notify Notifier

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/propertia-auth/internal/pkg/redact"
)

// Kind — тип сообщения.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

// Message — сообщение для сервиса доставки. Шаблоны — на его стороне.
type Message struct {
	Kind  Kind   `json:"kind"`
	To    string `json:"to"`
	Name  string `json:"name,omitempty"`
	Link  string `json:"link,omitempty"`
	Title string `json:"subject"`
}

// Notifier отправляет сообщение.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Welcome собирает приветственное письмо.
func Welcome(name, email string) Message {
	return Message{
		Kind:  KindWelcome,
		To:    email,
		Name:  name,
		Title: "Welcome to Propertia - Your Account Has Been Created",
	}
}

// PasswordReset собирает письмо со ссылкой сброса.
func PasswordReset(email, link string) Message {
	return Message{
		Kind:  KindPasswordReset,
		To:    email,
		Link:  link,
		Title: "Password Reset - Propertia Security",
	}
}

// LogNotifier ничего не отправляет, только пишет в лог. Используется,
// когда сервис доставки не сконфигурирован.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}

	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info("notification_skipped",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", redact.Email(msg.To)),
	)

	return nil
}
