package exception

import "github.com/yanun0323/errors"

// Hub errors
var (
	ErrSubscriberGone      = errors.New("hub: subscriber gone")
	ErrSubscriberExists    = errors.New("hub: subscriber already joined")
	ErrSubscriberEmptyID   = errors.New("hub: empty subscriber id")
	ErrSourceUnavailable   = errors.New("hub: source unavailable")
	ErrUnknownSubscription = errors.New("hub: unknown subscription type")
)
