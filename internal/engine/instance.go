package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
)

// Publisher получает кадр после каждого тика.
type Publisher interface {
	Broadcast(view *api.AreaView)
}

// Runner крутит сессию в реальном времени: тик по таймеру,
// затем снимок зоны подписчикам.
type Runner struct {
	Session *Session
	Out     Publisher

	// Every - публиковать каждый N-й кадр (0 и 1 - каждый).
	Every int

	log *logrus.Entry
}

func NewRunner(s *Session, out Publisher) *Runner {
	return &Runner{Session: s, Out: out, Every: 1, log: logger.For("runner")}
}

// Run блокирует до отмены ctx.
func (r *Runner) Run(ctx context.Context) {
	step := r.Session.Config.TickMillis
	ticker := time.NewTicker(time.Duration(step) * time.Millisecond)
	defer ticker.Stop()

	r.log.WithField("tick_millis", step).Info("Simulation loop started")

	frame := 0
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Simulation loop stopped")
			return
		case <-ticker.C:
			frame++
			r.step(step, r.Every <= 1 || frame%r.Every == 0)
		}
	}
}

// step - один кадр; вид собирается под той же блокировкой, что и тик.
func (r *Runner) step(delta uint32, publish bool) {
	s := r.Session
	s.mu.Lock()
	s.tick(delta)
	var view *api.AreaView
	if publish && r.Out != nil {
		view = s.BuildView()
	}
	s.mu.Unlock()

	if view != nil {
		r.Out.Broadcast(view)
	}
}
