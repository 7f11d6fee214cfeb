package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestFanoutIsBestEffort(t *testing.T) {
	bad := &failingNotifier{}
	good := &recorder{}
	f := NewFanout(bad, nil, good)

	err := f.Notify(context.Background(), Event{Kind: "booking", Status: "assigned", ID: 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, []string{"booking.assigned"}, good.types())
}

func TestHubNotifyReachesRecipientsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	alice := &Client{UserID: 1, Send: make(chan []byte, 1), Hub: hub}
	bob := &Client{UserID: 2, Send: make(chan []byte, 1), Hub: hub}
	hub.register <- alice
	hub.register <- bob
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(ctx, Event{Domain: "rental", Kind: "borrow_request", Status: "approved", ID: 5, Recipients: []uint{1}}))

	select {
	case raw := <-alice.Send:
		var msg struct {
			Type string `json:"type"`
			Data Event  `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "borrow_request.approved", msg.Type)
		assert.EqualValues(t, 5, msg.Data.ID)
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}
	assert.Empty(t, bob.Send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{UserID: 3, Send: make(chan []byte), Hub: hub}
	hub.clients[slow] = true

	hub.BroadcastToUser(3, []byte("x"))
	assert.Equal(t, 0, hub.ConnectedClients())
}

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	c := &Client{UserID: 4, Send: make(chan []byte, 1), Hub: hub}
	require.True(t, hub.join(c))
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, hub.ConnectedClients())

	finished := make(chan bool)
	go func() {
		hub.leave(c)
		finished <- hub.join(&Client{UserID: 5, Send: make(chan []byte, 1), Hub: hub})
	}()
	select {
	case joined := <-finished:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("leave or join blocked on a stopped hub")
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: LifecycleExchange}

	require.NoError(t, p.Notify(context.Background(), Event{Domain: "fleet", Kind: "booking", Status: "completed", ID: 9}))
	assert.Equal(t, LifecycleExchange, ch.exchange)
	assert.Equal(t, "booking.completed", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Contains(t, string(ch.msg.Body), `"status":"completed"`)
}

type fakeSender struct{ sent []*messaging.Message }

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "msg-id", nil
}

func TestPushNotifierUsesDeviceTokens(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	users := db.stores().Users
	withToken := &models.User{Name: "a", FCMToken: "device-1"}
	without := &models.User{Name: "b"}
	require.NoError(t, users.Create(ctx, withToken))
	require.NoError(t, users.Create(ctx, without))

	sender := &fakeSender{}
	p := NewPushNotifier(sender, users)
	err := p.Notify(ctx, Event{Kind: "payment", Status: "completed", ID: 3, Title: "Paid", Recipients: []uint{withToken.ID, without.ID, 404}, Data: map[string]any{"amount": "10.00"}})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "device-1", sender.sent[0].Token)
	assert.Equal(t, "payment.completed", sender.sent[0].Data["type"])
	assert.Equal(t, "10.00", sender.sent[0].Data["amount"])
}
