package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/queue"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
	"tactics-sim/internal/grid"
	"tactics-sim/internal/systems"
	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
	"tactics-sim/pkg/module"
)

var (
	ErrNoArea        = errors.New("no current area")
	ErrUnknownArea   = errors.New("unknown area")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrNotYourTurn   = errors.New("entity cannot act now")
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidTarget = errors.New("invalid attack target")
)

// maxLogEntries - сколько записей игрового лога держит сессия.
const maxLogEntries = 200

// ScriptEngine - скриптовый движок, из которого сессия берёт колбэки.
type ScriptEngine interface {
	Callback(name string) domain.Callback
	Resolve(ref string) domain.Callback
}

// Session - явный контекст симуляции: всё, что раньше было бы
// глобальным, живёт здесь и передаётся подсистемам явно.
type Session struct {
	mu sync.Mutex

	Config   Config
	Module   *module.Module
	Entities *domain.Registry
	Anims    *anim.Scheduler
	Turns    *TurnManager
	Effects  *Effects

	scripts ScriptEngine
	rng     *rand.Rand

	areas   map[string]*area.State
	current string
	env     *area.Env
	party   []domain.EntityID

	// UI-колбэки приходят из других горутин
	uiMu sync.Mutex
	ui   *queue.Queue[func(*Session)]

	handlers map[string]handlers.HandlerFunc

	Logs []api.LogEntry

	dying       map[domain.EntityID]bool
	fallen      []fallenMember
	combatEnded bool
	elapsed     uint64

	log *logrus.Entry
}

// fallenMember - член партии, убранный с поля боя до его конца.
type fallenMember struct {
	ID     domain.EntityID
	AreaID string
	Pos    domain.Position
	Marker int // слот пропа-метки или grid.None
}

// NewSession собирает сессию. scripts может быть nil (без скриптов).
func NewSession(cfg Config, mod *module.Module, scripts ScriptEngine) *Session {
	s := &Session{
		Config:   cfg,
		Module:   mod,
		Entities: domain.NewRegistry(),
		Effects:  &Effects{},
		scripts:  scripts,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		areas:    make(map[string]*area.State),
		ui:       queue.New[func(*Session)](),
		Logs:     []api.LogEntry{},
		dying:    make(map[domain.EntityID]bool),
		log:      logger.For("session"),
	}
	s.Anims = anim.NewScheduler(s)
	s.Turns = NewTurnManager(s.Entities, cfg.ElevationTolerance, cfg.RoundMillis)
	s.Turns.OnCombatChanged = s.onCombatChanged

	s.env = &area.Env{
		Module:             mod,
		Entities:           s.Entities,
		Rand:               s.rng,
		Hooks:              s.Turns,
		ElevationTolerance: cfg.ElevationTolerance,
		FeedbackMillis:     cfg.FeedbackTextMillis,
	}
	if scripts != nil {
		s.env.Scripts = scripts
	}

	s.registerHandlers()
	return s
}

// Start создаёт стартовую зону и ставит в неё партию из конфига.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.Module.Area(s.Config.StartArea)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownArea, s.Config.StartArea)
	}
	a, err := s.loadArea(def.ID)
	if err != nil {
		return err
	}
	s.current = a.ID
	s.Turns.Reset(a.ID)
	s.syncTurns(a)

	start := s.startPosition(def)
	for _, defID := range s.Config.Party {
		ad, ok := s.Module.Actor(defID)
		if !ok {
			s.log.WithField("actor_id", defID).Warn("Party member definition not found, skipping")
			continue
		}
		pos, ok := s.freeCellNear(a, ad.SizeClass(), ad.Size, start)
		if !ok {
			s.log.WithField("actor_id", defID).Warn("No free cell for party member, skipping")
			continue
		}
		id, err := a.AddActor(ad, pos, area.ActorOptions{Party: true})
		if err != nil {
			s.log.WithError(err).WithField("actor_id", defID).Warn("Party member not placed")
			continue
		}
		s.party = append(s.party, id)
	}
	s.log.WithFields(logrus.Fields{"area_id": a.ID, "party": len(s.party)}).Info("Session started")
	return nil
}

// startPosition - первая проходимая клетка зоны построчно.
func (s *Session) startPosition(def *module.AreaDef) domain.Position {
	for y := 0; y < def.Height; y++ {
		for x := 0; x < def.Width; x++ {
			if def.Passable(1, x, y) {
				return domain.Position{X: x, Y: y}
			}
		}
	}
	return domain.Position{}
}

// loadArea возвращает зону, при первом обращении создаёт и населяет её.
func (s *Session) loadArea(id string) (*area.State, error) {
	if a, ok := s.areas[id]; ok {
		return a, nil
	}
	def, ok := s.Module.Area(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArea, id)
	}
	a, err := area.New(def, s.env)
	if err != nil {
		return nil, err
	}
	s.areas[id] = a
	a.Populate()
	return a, nil
}

// --- ДОСТУП ---

// Area - текущая зона или nil.
func (s *Session) Area() *area.State {
	return s.areas[s.current]
}

// AreaByID - загруженная зона или nil.
func (s *Session) AreaByID(id string) *area.State {
	return s.areas[id]
}

// Party - хэндлы партии в порядке добавления.
func (s *Session) Party() []domain.EntityID {
	out := make([]domain.EntityID, len(s.party))
	copy(out, s.party)
	return out
}

// Lock даёт внешнему коду (отладка, сохранение) доступ к состоянию между тиками.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// --- anim.Env ---

func (s *Session) Entity(id domain.EntityID) *domain.Entity {
	return s.Entities.Get(id)
}

func (s *Session) IsVisible(areaID string, r domain.Rect) bool {
	a := s.areas[areaID]
	return a != nil && a.IsRectVisible(r)
}

// MoveEntity - шаг анимации движения: проверка проходимости, затем зона.
func (s *Session) MoveEntity(id domain.EntityID, x, y, squares int) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	a := s.areas[e.AreaID]
	if a == nil {
		return fmt.Errorf("%w: %s", ErrUnknownArea, e.AreaID)
	}
	if !a.IsPassable(grid.RequesterOf(e), nil, x, y) {
		return fmt.Errorf("%w: %s to (%d,%d)", area.ErrBlocked, id, x, y)
	}
	if err := a.MoveEntity(id, x, y, squares); err != nil {
		return err
	}

	// Переход между зонами - отложенно, через очередь UI
	if e.IsParty() && !s.Turns.InCombat() {
		if tr := a.TransitionAt(x, y); tr != nil {
			to := *tr
			s.QueueUI(func(s *Session) {
				if err := s.EnterArea(to.ToArea, domain.Position{X: to.ToX, Y: to.ToY}); err != nil {
					s.log.WithError(err).WithField("area_id", to.ToArea).Warn("Transition failed")
				}
			})
		}
	}
	return nil
}

// --- script.Host ---

// Feedback показывает текст скрипта над сущностью-владельцем.
func (s *Session) Feedback(areaID string, owner domain.EntityID, text string) {
	a := s.areas[areaID]
	if a == nil {
		return
	}
	var pos domain.Position
	if e := s.Entities.Get(owner); e != nil {
		pos = e.Pos
	}
	a.AddFeedback(text, pos)
}

// Animate ставит анимацию от скрипта. Владелец должен существовать.
func (s *Session) Animate(t *anim.Task) bool {
	if s.Entities.Get(t.Owner()) == nil {
		s.log.WithField("entity_id", t.Owner()).Warn("Animation for unknown entity, ignoring")
		return false
	}
	s.Anims.Queue(t)
	return true
}

// ApplyOwnerEffect - ApplyEffect для скриптов.
func (s *Session) ApplyOwnerEffect(owner domain.EntityID, name, script string, rounds int, tasks ...*anim.Task) (int, error) {
	return s.ApplyEffect(EffectSpec{Name: name, Owner: owner, Script: script, Rounds: rounds}, tasks...)
}

// TogglePropAt переключает проп без проверки дистанции (скрипты, ловушки).
func (s *Session) TogglePropAt(areaID string, pos domain.Position) bool {
	a := s.areas[areaID]
	if a == nil {
		return false
	}
	h := a.PropIndexAt(pos.X, pos.Y)
	if h == grid.None {
		s.log.WithFields(logrus.Fields{"area_id": areaID, "x": pos.X, "y": pos.Y}).Warn("No prop to toggle")
		return false
	}
	return a.ToggleProp(h)
}

// --- UI ---

// QueueUI ставит колбэк, который выполнится в начале следующего тика.
// Безопасно вызывать из любой горутины.
func (s *Session) QueueUI(fn func(*Session)) {
	s.uiMu.Lock()
	s.ui.Enqueue(fn)
	s.uiMu.Unlock()
}

func (s *Session) popUI() func(*Session) {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	if s.ui.Empty() {
		return nil
	}
	return s.ui.Dequeue()
}

// --- ДЕЙСТВИЯ ---

// canAct: в бою действует только владелец хода, и только без блокирующих анимаций.
func (s *Session) canAct(e *domain.Entity) error {
	if !e.IsAlive() {
		return fmt.Errorf("%w: %s is down", ErrNotYourTurn, e.ID)
	}
	if e.AreaID != s.current {
		return fmt.Errorf("%w: %s is not in the current area", ErrNotYourTurn, e.ID)
	}
	if s.Anims.HasBlocking(e.ID) {
		return fmt.Errorf("%w: %s is busy", ErrNotYourTurn, e.ID)
	}
	if s.Turns.InCombat() && s.Turns.Current() != e.ID {
		return fmt.Errorf("%w: not the turn of %s", ErrNotYourTurn, e.ID)
	}
	return nil
}

// RequestMove проверяет путь по клеткам и ставит анимацию движения.
// В бою каждый шаг стоит очко действия.
func (s *Session) RequestMove(id domain.EntityID, path []domain.Position) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if err := s.canAct(e); err != nil {
		return err
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	a := s.Area()

	// 1. Каждый шаг - соседняя проходимая клетка
	req := grid.RequesterOf(e)
	prev := e.Pos
	for i, step := range path {
		if prev.StepsTo(step) != 1 {
			return fmt.Errorf("%w: step %d %v is not adjacent to %v", ErrInvalidPath, i, step, prev)
		}
		if !a.IsPassable(req, nil, step.X, step.Y) {
			return fmt.Errorf("%w: step %d %v is blocked", ErrInvalidPath, i, step)
		}
		prev = step
	}

	// 2. Очки действий
	if s.Turns.InCombat() && !e.AI.SpendAP(domain.APCostMove*len(path)) {
		return fmt.Errorf("%w: not enough action points", ErrNotYourTurn)
	}

	s.Anims.Queue(anim.NewMove(id, path))
	return nil
}

// RequestAttack проверяет цель и ставит анимацию атаки. Урон
// считается, когда анимация сработает.
func (s *Session) RequestAttack(attacker, defender domain.EntityID, ranged bool) error {
	att := s.Entities.Get(attacker)
	if att == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, attacker)
	}
	if err := s.canAct(att); err != nil {
		return err
	}
	def := s.Entities.Get(defender)
	if v := systems.ValidateAttack(att, def, ranged, s.Area(), s.Config.ElevationTolerance); !v.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, v.Message)
	}
	if s.Turns.InCombat() && !att.AI.SpendAP(domain.APCostAttack) {
		return fmt.Errorf("%w: not enough action points", ErrNotYourTurn)
	}

	// Нападение вне боя начинает бой. Очистка блокирующих анимаций
	// применяется сразу, чтобы не снять сам удар.
	if !s.Turns.InCombat() && att.IsHostileTo(def) {
		s.Turns.StartCombat(s.Area())
		s.Anims.ApplyClearBlocking()
	}
	s.queueAttack(att, def, ranged)
	return nil
}

func (s *Session) queueAttack(att, def *domain.Entity, ranged bool) {
	if ranged {
		s.Anims.Queue(anim.NewRangedAttack(att.ID, def.ID, "arrow", att.Callbacks...))
		return
	}
	s.Anims.Queue(anim.NewMeleeAttack(att.ID, def.ID, att.Callbacks...))
}

// EndTurn - сущность завершает ход в бою. Вне боя ничего не делает.
func (s *Session) EndTurn(id domain.EntityID) {
	if !s.Turns.InCombat() {
		return
	}
	if s.Turns.Current() != id {
		s.log.WithField("entity_id", id).Warn("EndTurn: not the turn holder, ignoring")
		return
	}
	s.Turns.EndTurn(id)
}

// Teleport переносит сущность без анимации (отладка).
func (s *Session) Teleport(id domain.EntityID, pos domain.Position) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	a := s.areas[e.AreaID]
	if a == nil {
		return ErrNoArea
	}
	if !a.IsPassable(grid.RequesterOf(e), nil, pos.X, pos.Y) {
		return fmt.Errorf("%w: %v", area.ErrBlocked, pos)
	}
	s.Anims.RequestClearBlocking()
	return a.MoveEntity(id, pos.X, pos.Y, pos.StepsTo(e.Pos))
}

// SpawnActor добавляет актора из шаблона в текущую зону.
func (s *Session) SpawnActor(defID string, pos domain.Position) (domain.EntityID, error) {
	a := s.Area()
	if a == nil {
		return domain.NilEntityID, ErrNoArea
	}
	def, ok := s.Module.Actor(defID)
	if !ok {
		return domain.NilEntityID, fmt.Errorf("%w: actor %s", module.ErrUnknownDef, defID)
	}
	return a.AddActor(def, pos, area.ActorOptions{})
}

// ToggleProp переключает проп в клетке текущей зоны.
func (s *Session) ToggleProp(id domain.EntityID, pos domain.Position) error {
	e := s.Entities.Get(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if err := s.canAct(e); err != nil {
		return err
	}
	a := s.Area()
	h := a.PropIndexAt(pos.X, pos.Y)
	if h == grid.None {
		return fmt.Errorf("%w: no prop at %v", ErrInvalidTarget, pos)
	}
	if e.Footprint().GapTo(a.Prop(h).Footprint()) > 1 {
		return fmt.Errorf("%w: prop at %v is out of reach", ErrInvalidTarget, pos)
	}
	if !a.ToggleProp(h) {
		return fmt.Errorf("%w: prop at %v cannot be used", ErrInvalidTarget, pos)
	}
	return nil
}

// --- ЗОНЫ ---

// EnterArea переводит партию в другую зону. Прежняя зона остаётся
// загруженной со всем содержимым.
func (s *Session) EnterArea(areaID string, pos domain.Position) error {
	next, err := s.loadArea(areaID)
	if err != nil {
		return err
	}

	// 1. Партия уходит из текущей зоны
	members := make([]*domain.Entity, 0, len(s.party))
	for _, id := range s.party {
		e := s.Entities.Get(id)
		if e == nil {
			continue
		}
		s.Anims.CancelOwner(id, true)
		if prev := s.areas[e.AreaID]; prev != nil && prev.Contains(id) {
			prev.CancelTargeter()
			prev.RemoveEntity(id)
		}
		members = append(members, e)
	}

	// 2. Учёт ходов переключается на новую зону
	s.current = next.ID
	s.Turns.Reset(next.ID)
	s.syncTurns(next)

	// 3. Партия встаёт рядом с точкой входа
	for _, e := range members {
		p, ok := s.freeCellNear(next, e.SizeClass, e.Size, pos)
		if !ok {
			p = pos
			s.log.WithField("entity_id", e.ID).Warn("No free cell at area entry, placing on entry point")
		}
		e.Pos = p
		next.PlaceEntity(e)
	}
	for _, e := range members {
		s.Turns.CheckActivation(next, e.ID)
	}

	s.log.WithFields(logrus.Fields{"area_id": next.ID, "pos": pos}).Info("Party entered area")
	return nil
}

// syncTurns ставит в очередь тех, кто уже стоит в зоне.
func (s *Session) syncTurns(a *area.State) {
	for _, id := range a.Entities() {
		s.Turns.EntityAdded(a, id)
	}
}

// freeCellNear ищет ближайшую к pos клетку (по расширяющимся кольцам),
// куда встанет footprint заданного размера.
func (s *Session) freeCellNear(a *area.State, class int, size domain.Size, pos domain.Position) (domain.Position, bool) {
	req := grid.Requester{SizeClass: class, Size: size}
	limit := max(a.Width(), a.Height())
	for r := 0; r <= limit; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(domain.Abs(dx), domain.Abs(dy)) != r {
					continue
				}
				p := pos.Shift(dx, dy)
				if a.IsPassable(req, nil, p.X, p.Y) {
					return p, true
				}
			}
		}
	}
	return domain.Position{}, false
}

// --- ЛОГ ---

// AddLog добавляет запись в игровой лог сессии
func (s *Session) AddLog(text, logType string) {
	s.Logs = append(s.Logs, api.LogEntry{
		ID:        fmt.Sprintf("%s_%d_%d", s.current, s.elapsed, len(s.Logs)),
		Text:      text,
		Type:      logType,
		Timestamp: int64(s.elapsed),
	})
	if len(s.Logs) > maxLogEntries {
		s.Logs = s.Logs[len(s.Logs)-maxLogEntries:]
	}
	logger.Log.WithFields(logrus.Fields{
		"area_id":   s.current,
		"component": "game_log",
		"log_type":  logType,
	}).Info(text)
}

// --- БОЙ ---

func (s *Session) onCombatChanged(inCombat bool) {
	if inCombat {
		// Начало боя обрывает все блокирующие анимации
		s.Anims.RequestClearBlocking()
		s.AddLog("Бой начался!", "COMBAT")
		return
	}
	s.combatEnded = true
	s.AddLog("Бой окончен.", "COMBAT")
}

// sortedAreaIDs - загруженные зоны в стабильном порядке.
func (s *Session) sortedAreaIDs() []string {
	ids := make([]string, 0, len(s.areas))
	for id := range s.areas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProcessCommand принимает команду от внешнего мира (WebSocket).
// Исполняется она в начале ближайшего тика.
func (s *Session) ProcessCommand(cmd api.ClientCommand) {
	handler, ok := s.handlers[cmd.Action]
	if !ok {
		s.log.WithField("action", cmd.Action).Warn("Unknown action")
		return
	}
	var id domain.EntityID
	if err := id.UnmarshalJSON([]byte(cmd.Token)); err != nil {
		s.log.WithError(err).WithField("token", cmd.Token).Warn("Invalid command token")
		return
	}

	s.QueueUI(func(s *Session) {
		actor := s.Entities.Get(id)
		if actor == nil {
			s.log.WithField("entity_id", id).Warn("Command for unknown entity")
			return
		}
		res, err := handler(handlers.Context{Sim: s, Actor: actor}, cmd.Payload)
		if err != nil {
			s.log.WithError(err).WithField("action", cmd.Action).Warn("Command rejected")
			s.AddLog(err.Error(), "ERROR")
			return
		}
		if res.Msg != "" {
			s.AddLog(res.Msg, res.MsgType)
		}
	})
}
