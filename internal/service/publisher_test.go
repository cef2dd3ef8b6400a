package service

import (
    "context"
    "sync"
    "testing"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"

    q "github.com/iliyamo/service-storefront/internal/queue"
)

type recorder struct {
    mu  sync.Mutex
    got []q.Event
}

func (r *recorder) Publish(_ context.Context, ev q.Event) error {
    r.mu.Lock()
    r.got = append(r.got, ev)
    r.mu.Unlock()
    return nil
}

type closingRecorder struct {
    recorder
    closed int
}

func (r *closingRecorder) Close() error {
    r.closed++
    return nil
}

func TestAsyncDeliversInOrder(t *testing.T) {
    rec := &recorder{}
    a := NewAsync(rec, 8, logrus.New())
    for _, typ := range []string{q.EventLogin, q.EventOrderPlaced, q.EventLogout} {
        assert.NoError(t, a.Publish(context.Background(), q.NewEvent(typ, "u1", "")))
    }
    a.Close()
    if assert.Len(t, rec.got, 3) {
        assert.Equal(t, q.EventLogin, rec.got[0].Type)
        assert.Equal(t, q.EventLogout, rec.got[2].Type)
    }
}

func TestNopPublisher(t *testing.T) {
    assert.NoError(t, Nop{}.Publish(context.Background(), q.NewEvent(q.EventLogin, "", "")))
}

func TestAsyncPublishAfterCloseFails(t *testing.T) {
    rec := &closingRecorder{}
    a := NewAsync(rec, 8, logrus.New())
    assert.NoError(t, a.Publish(context.Background(), q.NewEvent(q.EventLogin, "u1", "")))
    assert.NoError(t, a.Close())

    assert.NotPanics(t, func() {
        err := a.Publish(context.Background(), q.NewEvent(q.EventLogout, "u1", ""))
        assert.ErrorIs(t, err, ErrClosed)
    })
    assert.NoError(t, a.Close())
    assert.Len(t, rec.got, 1)
    assert.Equal(t, 1, rec.closed)
}
