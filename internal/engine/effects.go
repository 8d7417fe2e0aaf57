package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
)

// EffectSpec - параметры нового эффекта.
type EffectSpec struct {
	Name   string
	Owner  domain.EntityID
	Script string // имя скрипта с хуками on_round_elapsed / on_removed
	Rounds int    // 0 - бессрочно, снимается только RemoveEffect

	// Поверхность эффекта (необязательно)
	Surface        []domain.Position
	SurfaceSquares int
}

// Effect - живой эффект. Анимации эффекта разделяют его флаг снятия.
type Effect struct {
	Name     string
	Owner    domain.EntityID
	AreaID   string
	Script   string
	Callback domain.Callback
	Rounds   int
	Surface  int // хэндл поверхности или -1

	surfacePoints  []domain.Position
	surfaceSquares int
	flag           *anim.RemovalFlag
}

// Flag - общий флаг снятия анимаций эффекта.
func (e *Effect) Flag() *anim.RemovalFlag { return e.flag }

// Effects - слотовый реестр эффектов. Индекс слота стабилен
// и пишется в снимки анимаций.
type Effects struct {
	slots []*Effect
}

func (r *Effects) insert(e *Effect) int {
	for i, slot := range r.slots {
		if slot == nil {
			r.slots[i] = e
			return i
		}
	}
	r.slots = append(r.slots, e)
	return len(r.slots) - 1
}

// Get возвращает эффект или nil.
func (r *Effects) Get(idx int) *Effect {
	if idx < 0 || idx >= len(r.slots) {
		return nil
	}
	return r.slots[idx]
}

// Len - число живых эффектов.
func (r *Effects) Len() int {
	n := 0
	for _, e := range r.slots {
		if e != nil {
			n++
		}
	}
	return n
}

// ApplyEffect регистрирует эффект в текущей зоне и ставит его анимации.
func (s *Session) ApplyEffect(spec EffectSpec, tasks ...*anim.Task) (int, error) {
	a := s.Area()
	if a == nil {
		return -1, ErrNoArea
	}
	if owner := s.Entities.Get(spec.Owner); owner == nil || owner.AreaID != a.ID {
		return -1, fmt.Errorf("%w: effect %s owner %s", ErrUnknownEntity, spec.Name, spec.Owner)
	}

	eff := &Effect{
		Name:           spec.Name,
		Owner:          spec.Owner,
		AreaID:         a.ID,
		Script:         spec.Script,
		Rounds:         spec.Rounds,
		Surface:        -1,
		surfacePoints:  spec.Surface,
		surfaceSquares: spec.SurfaceSquares,
		flag:           &anim.RemovalFlag{},
	}
	if spec.Script != "" && s.scripts != nil {
		eff.Callback = s.scripts.Callback(spec.Script)
	}

	idx := s.Effects.insert(eff)
	s.attachEffect(a, idx, eff, tasks)

	s.log.WithFields(logrus.Fields{
		"effect":    spec.Name,
		"slot":      idx,
		"entity_id": spec.Owner,
		"rounds":    spec.Rounds,
	}).Info("Effect applied")
	return idx, nil
}

// attachEffect: поверхность в зоне и анимации с общим флагом.
func (s *Session) attachEffect(a *area.State, idx int, eff *Effect, tasks []*anim.Task) {
	if len(eff.surfacePoints) > 0 {
		eff.Surface = a.AddSurface(eff.surfacePoints, eff.Callback, eff.surfaceSquares)
	}
	for _, t := range tasks {
		s.Anims.Queue(t.WithEffect(idx).WithFlag(eff.flag))
	}
}

// RemoveEffect снимает эффект: on_removed, флаг анимаций, поверхность.
func (s *Session) RemoveEffect(idx int) bool {
	eff := s.Effects.Get(idx)
	if eff == nil {
		s.log.WithField("slot", idx).Warn("Effect not found, ignoring")
		return false
	}
	s.Effects.slots[idx] = nil

	eff.flag.Request()
	if eff.Surface >= 0 {
		if a := s.areas[eff.AreaID]; a != nil {
			a.RemoveSurface(eff.Surface)
		}
	}
	if eff.Callback != nil {
		eff.Callback.Invoke(domain.HookRemoved, domain.CallbackContext{AreaID: eff.AreaID, Owner: eff.Owner})
	}

	s.log.WithFields(logrus.Fields{"effect": eff.Name, "slot": idx}).Info("Effect removed")
	return true
}

// roundElapsed уведомляет эффекты текущей зоны и снимает истёкшие.
func (s *Session) roundElapsed(rounds int) {
	for r := 0; r < rounds; r++ {
		for idx, eff := range s.Effects.slots {
			if eff == nil || eff.AreaID != s.current {
				continue
			}
			if eff.Callback != nil {
				eff.Callback.Invoke(domain.HookRoundElapsed, domain.CallbackContext{AreaID: eff.AreaID, Owner: eff.Owner})
			}
			if eff.Rounds == 0 {
				continue
			}
			eff.Rounds--
			if eff.Rounds == 0 {
				s.RemoveEffect(idx)
			}
		}
	}
}

// removeOwnerEffects снимает эффекты сущности (смерть, уход из зоны).
func (s *Session) removeOwnerEffects(owner domain.EntityID) {
	for idx, eff := range s.Effects.slots {
		if eff != nil && eff.Owner == owner {
			s.RemoveEffect(idx)
		}
	}
}

// EffectSnapshot - эффект в сохранении. Слот сохраняется, чтобы
// снимки анимаций сослались на тот же индекс.
type EffectSnapshot struct {
	Slot    int               `json:"slot"`
	Name    string            `json:"name"`
	Owner   int               `json:"owner"`
	AreaID  string            `json:"areaId"`
	Script  string            `json:"script,omitempty"`
	Rounds  int               `json:"rounds"`
	Surface []domain.Position `json:"surface,omitempty"`
	Squares int               `json:"squares,omitempty"`
}

func (r *Effects) snapshot(indexOf func(domain.EntityID) (int, bool)) []EffectSnapshot {
	var out []EffectSnapshot
	for i, e := range r.slots {
		if e == nil {
			continue
		}
		owner, ok := indexOf(e.Owner)
		if !ok {
			continue
		}
		out = append(out, EffectSnapshot{
			Slot:    i,
			Name:    e.Name,
			Owner:   owner,
			AreaID:  e.AreaID,
			Script:  e.Script,
			Rounds:  e.Rounds,
			Surface: e.surfacePoints,
			Squares: e.surfaceSquares,
		})
	}
	return out
}
