package anim

import (
	"sort"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

// Result - отложенные колбэки одного тика. Планировщик их не вызывает:
// оркестратор исполняет сначала Updates, затем Completions.
type Result struct {
	Updates     []domain.Deferred
	Completions []domain.Deferred
}

func (r Result) Empty() bool {
	return len(r.Updates) == 0 && len(r.Completions) == 0
}

// Scheduler владеет всеми живыми анимациями сессии.
type Scheduler struct {
	env     Env
	queued  []*Task
	buckets [bucketCount][]*Task

	clearRequested bool
	log            *logrus.Entry
}

func NewScheduler(env Env) *Scheduler {
	return &Scheduler{
		env: env,
		log: logger.Log.WithField("component", "anim_scheduler"),
	}
}

// Queue ставит задачу в очередь; в корзину она попадёт на следующем тике.
func (s *Scheduler) Queue(t *Task) *RemovalFlag {
	s.queued = append(s.queued, t)
	s.log.WithFields(logrus.Fields{
		"entity_id": t.owner,
		"kind":      t.Tag().String(),
	}).Debug("Animation queued")
	return t.flag
}

// Tick продвигает все задачи на delta мс.
func (s *Scheduler) Tick(delta uint32) Result {
	// 1. Новые задачи раскладываются по корзинам один раз
	for _, t := range s.queued {
		t.bucket = t.kind.placement(t, s.env.Entity(t.owner), s.env)
		s.buckets[t.bucket] = append(s.buckets[t.bucket], t)
	}
	s.queued = s.queued[:0]

	// 2. Проход по корзинам: все колбэки только копятся
	var f frame
	var res Result
	for b := range s.buckets {
		kept := s.buckets[b][:0]
		for _, t := range s.buckets[b] {
			if s.advance(t, delta, &f, &res) {
				kept = append(kept, t)
			}
		}
		for i := len(kept); i < len(s.buckets[b]); i++ {
			s.buckets[b][i] = nil
		}
		s.buckets[b] = kept
	}

	// 3. Атаки и update-колбэки по времени срабатывания
	res.Updates = append(f.attacks, res.Updates...)
	sort.SliceStable(res.Updates, func(i, j int) bool {
		return res.Updates[i].At < res.Updates[j].At
	})
	return res
}

// advance обрабатывает одну задачу. Возвращает false, если задача снята.
func (s *Scheduler) advance(t *Task, delta uint32, f *frame, res *Result) bool {
	e := s.env.Entity(t.owner)

	// 1. Внешний флаг снятия
	if t.flag.Requested() {
		s.retire(t, e, !t.flag.Forced(), res)
		return false
	}

	// 2. Время не убегает за длительность больше чем на один тик
	if t.duration.Infinite || t.elapsed <= t.duration.Millis {
		t.elapsed += delta
	}

	// 3. Снимаемость оценивается до мутации кадра: атака, сработавшая
	// в этом кадре, снимется только на следующем тике
	wasRemovable := t.kind.removable(t)

	// 4. Мутация вида
	t.kind.update(t, e, s.env, f)

	// 5. Созревшие update-колбэки
	for t.nextUpdate < len(t.updates) && t.updates[t.nextUpdate].At <= t.elapsed {
		u := t.updates[t.nextUpdate]
		t.nextUpdate++
		res.Updates = append(res.Updates, domain.Deferred{
			At:       u.At,
			Hook:     domain.HookAnimUpdate,
			Callback: u.Callback,
			Ctx:      s.ctx(t, e),
		})
	}

	// 6. Естественное завершение
	if t.overdue() && wasRemovable {
		s.retire(t, e, true, res)
		return false
	}
	return true
}

// retire: сначала cleanup вида, потом (если можно) колбэки завершения.
func (s *Scheduler) retire(t *Task, e *domain.Entity, complete bool, res *Result) {
	t.kind.cleanup(t, e)
	if complete {
		ctx := s.ctx(t, e)
		for _, cb := range t.completions {
			res.Completions = append(res.Completions, domain.Deferred{
				At:       t.elapsed,
				Hook:     domain.HookAnimComplete,
				Callback: cb,
				Ctx:      ctx,
			})
		}
	}
	s.log.WithFields(logrus.Fields{
		"entity_id": t.owner,
		"kind":      t.Tag().String(),
		"elapsed":   t.elapsed,
		"completed": complete,
	}).Debug("Animation removed")
}

func (s *Scheduler) ctx(t *Task, e *domain.Entity) domain.CallbackContext {
	c := domain.CallbackContext{Owner: t.owner, Millis: t.elapsed}
	if e != nil {
		c.AreaID = e.AreaID
	}
	return c
}

// RequestClearBlocking выставляет глобальный флаг очистки (начало боя, телепорт).
func (s *Scheduler) RequestClearBlocking() {
	s.clearRequested = true
}

// ClearRequested - выставлен ли флаг очистки.
func (s *Scheduler) ClearRequested() bool {
	return s.clearRequested
}

// ApplyClearBlocking принудительно помечает все блокирующие задачи.
// Они снимутся на следующем тике: cleanup выполнится, колбэки
// завершения - нет. Возвращает число помеченных задач.
func (s *Scheduler) ApplyClearBlocking() int {
	if !s.clearRequested {
		return 0
	}
	s.clearRequested = false

	n := 0
	s.each(func(t *Task) {
		if t.IsBlocking() && !t.flag.Requested() {
			t.flag.RequestForced()
			n++
		}
	})
	s.log.WithField("count", n).Debug("Blocking animations cleared")
	return n
}

// HasBlocking - есть ли у сущности незавершённая блокирующая анимация.
func (s *Scheduler) HasBlocking(owner domain.EntityID) bool {
	found := false
	s.each(func(t *Task) {
		if !found && t.owner == owner && t.IsBlocking() && !t.flag.Requested() {
			found = true
		}
	})
	return found
}

// CancelOwner просит снять все задачи сущности (уход из зоны).
func (s *Scheduler) CancelOwner(owner domain.EntityID, forced bool) {
	s.each(func(t *Task) {
		if t.owner != owner {
			return
		}
		if forced {
			t.flag.RequestForced()
		} else {
			t.flag.Request()
		}
	})
}

// Each обходит задачи корзины в порядке вставки.
func (s *Scheduler) Each(b Bucket, fn func(t *Task)) {
	if b >= bucketCount {
		return
	}
	for _, t := range s.buckets[b] {
		fn(t)
	}
}

// Draw возвращает примитивы корзины, видимые прямо сейчас.
func (s *Scheduler) Draw(b Bucket) []Primitive {
	var out []Primitive
	s.Each(b, func(t *Task) {
		e := s.env.Entity(t.owner)
		if e == nil && t.Tag() != TagParticleGenerator && t.Tag() != TagRangedAttack {
			return
		}
		p, ok := t.kind.draw(t, e)
		if !ok {
			return
		}
		cell := domain.Rect{X: int(p.X + 0.5), Y: int(p.Y + 0.5), W: 1, H: 1}
		if s.env.IsVisible(p.AreaID, cell) {
			out = append(out, p)
		}
	})
	return out
}

// Len - число задач, включая ещё не разложенные.
func (s *Scheduler) Len() int {
	n := len(s.queued)
	for b := range s.buckets {
		n += len(s.buckets[b])
	}
	return n
}

func (s *Scheduler) each(fn func(t *Task)) {
	for _, t := range s.queued {
		fn(t)
	}
	for b := range s.buckets {
		for _, t := range s.buckets[b] {
			fn(t)
		}
	}
}
