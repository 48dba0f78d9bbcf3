package services

import "context"

// Notifier доставляет уведомления наблюдателям турнира после коммита.
// Реализация: brackets.Hub.
type Notifier interface {
	Publish(ctx context.Context, tournamentID int, messageType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, int, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
