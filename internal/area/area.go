package area

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/internal/visibility"
	"tactics-sim/pkg/logger"
	"tactics-sim/pkg/module"
)

var (
	ErrOutOfBounds          = errors.New("out of area bounds")
	ErrBlocked              = errors.New("destination is not passable")
	ErrPropOverlap          = errors.New("cell already holds a prop")
	ErrUnknownEntity        = errors.New("entity is not in this area")
	ErrTriggerCountMismatch = errors.New("trigger count mismatch")
)

// TurnHooks - точки расширения для учёта ходов (соседний компонент).
type TurnHooks interface {
	EntityAdded(s *State, id domain.EntityID)
	EntityRemoved(s *State, id domain.EntityID)
	// CheckActivation: член партии сдвинулся, возможно, пора в бой.
	CheckActivation(s *State, id domain.EntityID)
}

// ScriptResolver отдаёт колбэк скрипта по имени или nil.
type ScriptResolver interface {
	Callback(name string) domain.Callback
}

// Env - зависимости зоны из контекста сессии.
type Env struct {
	Module             *module.Module
	Entities           *domain.Registry
	Rand               *rand.Rand
	Hooks              TurnHooks
	Scripts            ScriptResolver
	ElevationTolerance int
	FeedbackMillis     uint32
}

// State - динамическое содержимое одной зоны. Владеет индексом клеток
// и трекером видимости; снаружи они меняются только через методы State.
type State struct {
	ID  string
	Def *module.AreaDef

	env  *Env
	grid *grid.Index
	vis  *visibility.Tracker

	entities  []domain.EntityID
	props     []*Prop // nil - свободный слот
	surfaces  []*Surface
	triggers  []TriggerState
	merchants map[string]*Merchant
	feedback  []Feedback
	targeter  Targeter

	pending []domain.Deferred
	log     *logrus.Entry
}

// New создаёт зону при первой загрузке: переходы, триггеры, статические
// пропы и торговцы. Акторов расставляет Populate.
func New(def *module.AreaDef, env *Env) (*State, error) {
	s, err := newState(def, env)
	if err != nil {
		return nil, err
	}

	// 1. Триггеры: флаги из определений
	for i := range def.Triggers {
		s.triggers[i] = TriggerState{Enabled: def.Triggers[i].InitiallyEnabled()}
	}

	// 2. Статические пропы
	for _, pl := range def.Props {
		pd, ok := env.Module.Prop(pl.ID)
		if !ok {
			s.log.WithField("prop_id", pl.ID).Warn("Prop definition not found, skipping")
			continue
		}
		if _, err := s.AddProp(pd, domain.Position{X: pl.X, Y: pl.Y}, pl.InitiallyEnabled()); err != nil {
			return nil, fmt.Errorf("area %s: prop %s: %w", def.ID, pl.ID, err)
		}
	}

	// 3. Торговцы
	for _, md := range def.Merchants {
		m := &Merchant{ID: md.ID}
		for _, it := range md.Items {
			if _, ok := env.Module.Item(it.ID); !ok {
				s.log.WithFields(logrus.Fields{"merchant": md.ID, "item_id": it.ID}).Warn("Item definition not found, skipping")
				continue
			}
			m.Items = append(m.Items, it)
		}
		s.merchants[m.ID] = m
	}

	return s, nil
}

func newState(def *module.AreaDef, env *Env) (*State, error) {
	if def == nil {
		return nil, errors.New("nil area definition")
	}
	if def.Width <= 0 || def.Height <= 0 {
		return nil, fmt.Errorf("%w: area %s has size %dx%d", module.ErrInvalidArea, def.ID, def.Width, def.Height)
	}

	s := &State{
		ID:        def.ID,
		Def:       def,
		env:       env,
		grid:      grid.New(def.Width, def.Height, def),
		vis:       visibility.New(def.Width, def.Height, env.ElevationTolerance),
		triggers:  make([]TriggerState, len(def.Triggers)),
		merchants: make(map[string]*Merchant),
		log: logger.Log.WithFields(logrus.Fields{
			"component": "area",
			"area_id":   def.ID,
		}),
	}

	for i := range def.Transitions {
		s.grid.SetTransition(i, def.Transitions[i].Rect())
	}
	for i := range def.Triggers {
		s.grid.SetTrigger(i, def.Triggers[i].Rect())
	}
	return s, nil
}

// Populate расставляет стартовых акторов, авто-энкаунтеры и
// срабатывает триггеры on_area_load. Только для свежей зоны.
func (s *State) Populate() {
	for _, pl := range s.Def.Actors {
		ad, ok := s.env.Module.Actor(pl.ID)
		if !ok {
			s.log.WithField("actor_id", pl.ID).Warn("Actor definition not found, skipping")
			continue
		}
		opts := ActorOptions{Faction: pl.Faction}
		if _, err := s.AddActor(ad, domain.Position{X: pl.X, Y: pl.Y}, opts); err != nil {
			s.log.WithError(err).WithField("actor_id", pl.ID).Warn("Initial actor not placed")
		}
	}
	for i := range s.Def.Encounters {
		enc := &s.Def.Encounters[i]
		if !enc.AutoSpawn {
			continue
		}
		ed, ok := s.env.Module.Encounter(enc.ID)
		if !ok {
			s.log.WithField("encounter", enc.ID).Warn("Encounter definition not found, skipping")
			continue
		}
		s.SpawnEncounter(ed, enc.Rect())
	}
	s.fireTriggers(module.TriggerOnAreaLoad, domain.NilEntityID, nil)
}

// --- ЗАПРОСЫ ---

func (s *State) Width() int  { return s.Def.Width }
func (s *State) Height() int { return s.Def.Height }

func (s *State) InBounds(x, y int) bool {
	return s.grid.InBounds(x, y)
}

// Transparent - террейн прозрачен и проп не закрывает обзор.
func (s *State) Transparent(x, y int) bool {
	return s.Def.Transparent(x, y) && s.grid.PropVisible(x, y)
}

func (s *State) Elevation(x, y int) uint8 {
	return s.Def.Elevation(x, y)
}

// IsPassable - см. grid.Index.IsPassable.
func (s *State) IsPassable(req grid.Requester, ignore []domain.EntityID, x, y int) bool {
	return s.grid.IsPassable(req, ignore, x, y)
}

func (s *State) EntityAt(x, y int) domain.EntityID {
	return s.grid.EntityAt(x, y)
}

func (s *State) EntitiesAt(x, y int) []domain.EntityID {
	return s.grid.EntitiesAt(x, y)
}

// TransitionAt возвращает переход в клетке или nil.
func (s *State) TransitionAt(x, y int) *module.TransitionDef {
	h := s.grid.TransitionAt(x, y)
	if h == grid.None {
		return nil
	}
	return &s.Def.Transitions[h]
}

func (s *State) PropIndexAt(x, y int) int {
	return s.grid.PropAt(x, y)
}

func (s *State) SurfacesAt(x, y int) []int {
	return s.grid.SurfacesAt(x, y)
}

func (s *State) IsVisible(x, y int) bool {
	return s.vis.IsVisible(x, y)
}

func (s *State) IsExplored(x, y int) bool {
	return s.vis.IsExplored(x, y)
}

// IsRectVisible - виден ли хоть один угол прямоугольника.
func (s *State) IsRectVisible(r domain.Rect) bool {
	return s.vis.IsRectVisible(r)
}

// HasEntityAt проверяет запись в индексе (для тестов и отладки).
func (s *State) HasEntityAt(id domain.EntityID, x, y int) bool {
	return s.grid.HasEntity(id, x, y)
}

// Entities - копия списка хэндлов в порядке добавления.
func (s *State) Entities() []domain.EntityID {
	out := make([]domain.EntityID, len(s.entities))
	copy(out, s.entities)
	return out
}

func (s *State) Contains(id domain.EntityID) bool {
	for _, e := range s.entities {
		if e == id {
			return true
		}
	}
	return false
}

// Party - живые и мёртвые члены партии в зоне.
func (s *State) Party() []*domain.Entity {
	var out []*domain.Entity
	for _, id := range s.entities {
		if e := s.env.Entities.Get(id); e != nil && e.IsParty() {
			out = append(out, e)
		}
	}
	return out
}

// DrainPending отдаёт накопленные уведомления (on_moved, поверхности,
// триггеры) и очищает очередь. Исполняет их оркестратор.
func (s *State) DrainPending() []domain.Deferred {
	out := s.pending
	s.pending = nil
	return out
}

func (s *State) queue(cb domain.Callback, hook domain.Hook, ctx domain.CallbackContext) {
	if cb == nil {
		return
	}
	ctx.AreaID = s.ID
	s.pending = append(s.pending, domain.Deferred{Hook: hook, Callback: cb, Ctx: ctx})
}

// RefreshVisibility - полный пересчёт по живым членам партии.
func (s *State) RefreshVisibility() {
	var obs []visibility.Observer
	for _, e := range s.Party() {
		if !e.IsAlive() {
			continue
		}
		obs = append(obs, visibility.Observer{ID: e.ID, Center: e.Center(), Radius: visionRadius(e)})
	}
	s.vis.RecomputeAll(s, obs)
}

func visionRadius(e *domain.Entity) int {
	if e.Vision == nil || e.Vision.Radius < domain.MinVisionRadius {
		return domain.DefaultVisionRadius
	}
	return e.Vision.Radius
}
