package area

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/pkg/module"
)

// ActorOptions - параметры размещения актора.
type ActorOptions struct {
	Party   bool
	Faction string // переопределяет фракцию шаблона
	Level   int
}

// AddActor создаёт актора из шаблона, сразу считает производные
// характеристики и стартовое состояние хода и пишет footprint.
func (s *State) AddActor(def *module.ActorDef, pos domain.Position, opts ActorOptions) (domain.EntityID, error) {
	size := def.Size
	fp := domain.FootprintOf(pos, size)
	if !s.rectInBounds(fp) {
		return domain.NilEntityID, fmt.Errorf("%w: actor %s at %v", ErrOutOfBounds, def.ID, pos)
	}
	req := grid.Requester{SizeClass: def.SizeClass(), Size: size}
	if !s.grid.IsPassable(req, nil, pos.X, pos.Y) {
		return domain.NilEntityID, fmt.Errorf("%w: actor %s at %v", ErrBlocked, def.ID, pos)
	}

	e := NewActorEntity(def, opts)
	e.Pos = pos

	kind := domain.KindActor
	if opts.Party {
		kind = domain.KindParty
	}
	s.env.Entities.Insert(kind, e)

	if s.env.Scripts != nil && def.Script != "" {
		if cb := s.env.Scripts.Callback(def.Script); cb != nil {
			e.Callbacks = append(e.Callbacks, cb)
		}
	}

	s.PlaceEntity(e)
	return e.ID, nil
}

// NewActorEntity строит сущность из шаблона без размещения.
func NewActorEntity(def *module.ActorDef, opts ActorOptions) *domain.Entity {
	level := opts.Level
	if level < 1 {
		level = max(def.Level, 1)
	}

	faction := domain.ParseFaction(def.Faction)
	if opts.Faction != "" {
		faction = domain.ParseFaction(opts.Faction)
	}
	if opts.Party {
		faction = domain.FactionFriendly
	}

	maxHP := def.HP + def.HPPerLevel*(level-1)
	if maxHP < 1 {
		maxHP = 1
	}
	reach := def.Reach
	if reach < 1 {
		reach = 1
	}
	vision := def.Vision
	if vision < domain.MinVisionRadius {
		vision = domain.DefaultVisionRadius
	}

	return &domain.Entity{
		DefID:     def.ID,
		Name:      def.Name,
		Faction:   faction,
		Size:      domain.FootprintOf(domain.Position{}, def.Size).Size(),
		SizeClass: def.SizeClass(),
		Stats: &domain.StatsComponent{
			HP:         maxHP,
			MaxHP:      maxHP,
			Strength:   def.Strength,
			Defense:    def.Defense,
			Initiative: def.Initiative,
			Reach:      reach,
		},
		AI: &domain.AIComponent{
			State:        domain.AIStateIdle,
			ActionPoints: domain.DefaultMaxAP,
			MaxAP:        domain.DefaultMaxAP,
			Controlled:   opts.Party,
		},
		Vision: &domain.VisionComponent{Radius: vision},
		Visual: domain.DefaultVisual(),
	}
}

// PlaceEntity записывает уже зарегистрированную сущность в зону
// (вход партии, восстановление из сохранения).
func (s *State) PlaceEntity(e *domain.Entity) {
	e.AreaID = s.ID
	for _, surf := range s.grid.AddEntityPoints(e.ID, e.Footprint()) {
		s.enterSurface(surf, e.ID)
	}
	s.entities = append(s.entities, e.ID)

	if e.IsParty() && e.IsAlive() {
		s.vis.Recompute(s, e.ID, e.Center(), visionRadius(e), domain.Position{})
	}
	if s.env.Hooks != nil {
		s.env.Hooks.EntityAdded(s, e.ID)
	}

	s.log.WithFields(logrus.Fields{
		"entity_id": e.ID,
		"def_id":    e.DefID,
		"pos":       e.Pos,
	}).Debug("Entity placed")
}

// RemoveEntity снимает сущность с карты. Из реестра её убирает сессия.
func (s *State) RemoveEntity(id domain.EntityID) bool {
	idx := -1
	for i, v := range s.entities {
		if v == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.log.WithField("entity_id", id).Warn("RemoveEntity: entity not in area")
		return false
	}
	s.entities = append(s.entities[:idx], s.entities[idx+1:]...)

	if e := s.env.Entities.Get(id); e != nil {
		for _, surf := range s.grid.ClearEntityPoints(id, e.Footprint()) {
			s.exitSurface(surf, id)
		}
		if e.IsParty() {
			s.vis.RemoveMember(id)
		}
	}
	if s.env.Hooks != nil {
		s.env.Hooks.EntityRemoved(s, id)
	}
	return true
}

// MoveEntity переносит сущность в (x, y). Проходимость проверяет вызывающий;
// здесь только учёт клеток, поверхностей, видимости и триггеров.
func (s *State) MoveEntity(id domain.EntityID, x, y, squares int) error {
	e := s.env.Entities.Get(id)
	if e == nil || e.AreaID != s.ID {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	to := domain.Position{X: x, Y: y}
	if !s.rectInBounds(domain.FootprintOf(to, e.Size)) {
		return fmt.Errorf("%w: %s to %v", ErrOutOfBounds, id, to)
	}

	// 1. Старый footprint -> новый
	from := e.Pos
	before := s.grid.ClearEntityPoints(id, e.Footprint())
	e.Pos = to
	after := s.grid.AddEntityPoints(id, e.Footprint())

	// 2. Разница поверхностей
	s.diffSurfaces(id, before, after, squares)

	// 3. Собственные колбэки сущности
	for _, cb := range e.Callbacks {
		s.queue(cb, domain.HookMoved, domain.CallbackContext{Owner: id, Squares: squares})
	}

	// 4. Только для партии: видимость, триггеры, проверка начала боя
	if e.IsParty() {
		if e.IsAlive() {
			s.vis.Recompute(s, id, e.Center(), visionRadius(e), to.Sub(from))
		}
		s.fireTriggers(module.TriggerOnPlayerEnter, id, e.Footprint().Points())
		if s.env.Hooks != nil {
			s.env.Hooks.CheckActivation(s, id)
		}
	}
	return nil
}

// SpawnEncounter генерирует акторов энкаунтера внутри rect. Для каждого
// актора выбирается случайная свободная клетка; если её нет, актор
// пропускается с предупреждением. Возвращает число добавленных.
func (s *State) SpawnEncounter(def *module.EncounterDef, rect domain.Rect) int {
	added := 0
	for _, entry := range def.Entries {
		ad, ok := s.env.Module.Actor(entry.Actor)
		if !ok {
			s.log.WithFields(logrus.Fields{"encounter": def.ID, "actor_id": entry.Actor}).
				Warn("Actor definition not found, skipping")
			continue
		}
		count := max(entry.Count, 1)
		for i := 0; i < count; i++ {
			cells := s.spawnCells(ad, rect)
			if len(cells) == 0 {
				s.log.WithFields(logrus.Fields{"encounter": def.ID, "actor_id": ad.ID}).
					Warn("No free cell for encounter actor, skipping")
				continue
			}
			pos := cells[s.env.Rand.Intn(len(cells))]
			if _, err := s.AddActor(ad, pos, ActorOptions{}); err != nil {
				s.log.WithError(err).Warn("Encounter actor not placed")
				continue
			}
			added++
		}
	}
	if added == 0 {
		s.log.WithField("encounter", def.ID).Warn("Encounter spawned no actors")
	}
	return added
}

// SpawnEncounterAt - вход для UI: энкаунтер зоны, покрывающий клетку.
func (s *State) SpawnEncounterAt(x, y int) int {
	for i := range s.Def.Encounters {
		enc := &s.Def.Encounters[i]
		if !enc.Rect().Contains(x, y) {
			continue
		}
		ed, ok := s.env.Module.Encounter(enc.ID)
		if !ok {
			s.log.WithField("encounter", enc.ID).Warn("Encounter definition not found")
			return 0
		}
		return s.SpawnEncounter(ed, enc.Rect())
	}
	s.log.WithFields(logrus.Fields{"x": x, "y": y}).Warn("No encounter at cell")
	return 0
}

// spawnCells - якорные клетки rect, где footprint актора целиком
// в rect, проходим по террейну и пропам и никем не занят.
func (s *State) spawnCells(def *module.ActorDef, rect domain.Rect) []domain.Position {
	var out []domain.Position
	class := def.SizeClass()
	rect.Each(func(x, y int) {
		fp := domain.FootprintOf(domain.Position{X: x, Y: y}, def.Size)
		if !rect.ContainsRect(fp) {
			return
		}
		if s.grid.IsTerrainPassable(class, fp) && s.grid.IsFree(fp) {
			out = append(out, domain.Position{X: x, Y: y})
		}
	})
	return out
}

func (s *State) rectInBounds(r domain.Rect) bool {
	return s.grid.InBounds(r.X, r.Y) && s.grid.InBounds(r.X+r.W-1, r.Y+r.H-1)
}
