package network

import (
	"sync"

	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
)

// Broadcaster занимается только рассылкой кадров подписчикам
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: ID подключения -> Личный канал
	subscribers map[string]chan *api.AreaView
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan *api.AreaView),
	}
}

// Register создает личный канал для подключения
func (b *Broadcaster) Register(id string) chan *api.AreaView {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}

	ch := make(chan *api.AreaView, 16)
	b.subscribers[id] = ch
	return ch
}

// Unregister удаляет подписчика
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Broadcast отправляет кадр всем. Медленный подписчик кадр пропускает.
func (b *Broadcaster) Broadcast(view *api.AreaView) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- view:
		default:
			logger.Log.WithField("subscriber", id).Trace("Hub: channel full, frame dropped")
		}
	}
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
