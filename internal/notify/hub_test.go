package notify_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
	"github.com/KrishTanna28/SlotSwapper/internal/notify"
)

func notification(kind model.NotificationKind) model.Notification {
	return model.Notification{Kind: kind, SwapRequestID: uuid.New()}
}

func TestHub_PublishReachesEverySessionOfRecipient(t *testing.T) {
	req := require.New(t)
	hub := notify.NewHub(zap.NewNop())

	first := hub.Subscribe("u1")
	second := hub.Subscribe("u1")
	other := hub.Subscribe("u2")

	n := notification(model.NotificationNewSwapRequest)
	hub.Publish("u1", n)

	req.Equal(n, <-first.Events())
	req.Equal(n, <-second.Events())
	req.Empty(other.Events(), "events never cross recipients")
	req.Equal(2, hub.SessionCount("u1"))
}

func TestHub_PerRecipientOrdering(t *testing.T) {
	req := require.New(t)
	hub := notify.NewHub(zap.NewNop())
	sess := hub.Subscribe("u1")

	kinds := []model.NotificationKind{
		model.NotificationNewSwapRequest,
		model.NotificationSwapRejected,
		model.NotificationSwapAccepted,
	}
	for _, k := range kinds {
		hub.Publish("u1", notification(k))
	}

	for _, k := range kinds {
		req.Equal(k, (<-sess.Events()).Kind)
	}
}

func TestHub_PublishToAbsentRecipientIsDropped(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	// Must not block or panic.
	hub.Publish("nobody", notification(model.NotificationSwapAccepted))
	require.Equal(t, 0, hub.SessionCount("nobody"))
}

func TestHub_FullSessionDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	hub := notify.NewHub(zap.NewNop())
	sess := hub.Subscribe("u1")

	// Overfill the buffer without draining; Publish must stay non-blocking.
	for i := 0; i < 100; i++ {
		hub.Publish("u1", notification(model.NotificationNewSwapRequest))
	}

	var received int
	for {
		select {
		case <-sess.Events():
			received++
			continue
		default:
		}
		break
	}
	req.Greater(received, 0)
	req.Less(received, 100)
}

func TestHub_UnsubscribeClosesSession(t *testing.T) {
	req := require.New(t)
	hub := notify.NewHub(zap.NewNop())
	sess := hub.Subscribe("u1")

	hub.Unsubscribe(sess)
	req.Equal(0, hub.SessionCount("u1"))

	_, open := <-sess.Events()
	req.False(open)

	// Publishing after unsubscribe drops silently, double unsubscribe is a
	// no-op.
	hub.Publish("u1", notification(model.NotificationSwapAccepted))
	hub.Unsubscribe(sess)
}
