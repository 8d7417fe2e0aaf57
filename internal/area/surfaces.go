package area

import (
	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/pkg/module"
)

// Surface - эффект, привязанный к клеткам (не сущность).
type Surface struct {
	Points   []domain.Position
	Callback domain.Callback
	// Squares - сколько клеток нужно пройти внутри, чтобы сработал
	// on_moved_in_surface. 0 - не срабатывает.
	Squares int

	moved map[domain.EntityID]int
}

// TriggerState - флаги триггера, позиционно соответствует Def.Triggers.
type TriggerState struct {
	Enabled bool `json:"enabled"`
	Fired   bool `json:"fired"`
}

// AddSurface регистрирует поверхность. Сущности, уже стоящие на её
// клетках, получают on_surface_enter.
func (s *State) AddSurface(points []domain.Position, cb domain.Callback, squares int) int {
	surf := &Surface{Points: points, Callback: cb, Squares: squares, moved: make(map[domain.EntityID]int)}

	h := -1
	for i, slot := range s.surfaces {
		if slot == nil {
			h = i
			break
		}
	}
	if h < 0 {
		s.surfaces = append(s.surfaces, nil)
		h = len(s.surfaces) - 1
	}
	s.surfaces[h] = surf
	s.grid.AddSurfacePoints(h, points)

	for _, id := range s.entitiesOn(points) {
		s.enterSurface(h, id)
	}
	return h
}

// RemoveSurface снимает поверхность; стоящие на ней получают on_surface_exit.
func (s *State) RemoveSurface(h int) bool {
	surf := s.Surface(h)
	if surf == nil {
		s.log.WithField("surface", h).Warn("Surface not found, ignoring")
		return false
	}
	for _, id := range s.entitiesOn(surf.Points) {
		s.exitSurface(h, id)
	}
	s.grid.RemoveSurfacePoints(h, surf.Points)
	s.surfaces[h] = nil
	return true
}

func (s *State) Surface(h int) *Surface {
	if h < 0 || h >= len(s.surfaces) {
		return nil
	}
	return s.surfaces[h]
}

func (s *State) entitiesOn(points []domain.Position) []domain.EntityID {
	seen := make(map[domain.EntityID]bool)
	var out []domain.EntityID
	for _, p := range points {
		for _, id := range s.grid.EntitiesAt(p.X, p.Y) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func (s *State) enterSurface(h int, id domain.EntityID) {
	surf := s.Surface(h)
	if surf == nil {
		return
	}
	surf.moved[id] = 0
	s.queue(surf.Callback, domain.HookSurfaceEnter, domain.CallbackContext{Owner: id, Surface: h})
}

func (s *State) exitSurface(h int, id domain.EntityID) {
	surf := s.Surface(h)
	if surf == nil {
		return
	}
	delete(surf.moved, id)
	s.queue(surf.Callback, domain.HookSurfaceExit, domain.CallbackContext{Owner: id, Surface: h})
}

// diffSurfaces сравнивает отсортированные списки до и после шага.
func (s *State) diffSurfaces(id domain.EntityID, before, after []int, squares int) {
	i, j := 0, 0
	for i < len(before) || j < len(after) {
		switch {
		case j >= len(after) || (i < len(before) && before[i] < after[j]):
			s.exitSurface(before[i], id)
			i++
		case i >= len(before) || after[j] < before[i]:
			s.enterSurface(after[j], id)
			j++
		default:
			s.movedWithin(after[j], id, squares)
			i++
			j++
		}
	}
}

// movedWithin копит пройденные клетки и срабатывает по достижении порога.
func (s *State) movedWithin(h int, id domain.EntityID, squares int) {
	surf := s.Surface(h)
	if surf == nil || surf.Squares <= 0 {
		return
	}
	surf.moved[id] += squares
	if surf.moved[id] < surf.Squares {
		return
	}
	total := surf.moved[id]
	surf.moved[id] = total % surf.Squares
	s.queue(surf.Callback, domain.HookMovedInSurface, domain.CallbackContext{Owner: id, Surface: h, Squares: total})
}

// --- ТРИГГЕРЫ ---

// SetTriggerEnabled включает или выключает триггер. Повторное включение
// сбрасывает Fired, и триггер может сработать снова.
func (s *State) SetTriggerEnabled(i int, enabled bool) bool {
	if i < 0 || i >= len(s.triggers) {
		s.log.WithField("trigger", i).Warn("Trigger not found, ignoring")
		return false
	}
	s.triggers[i].Enabled = enabled
	if enabled {
		s.triggers[i].Fired = false
	}
	return true
}

// Trigger - текущие флаги триггера.
func (s *State) Trigger(i int) (TriggerState, bool) {
	if i < 0 || i >= len(s.triggers) {
		return TriggerState{}, false
	}
	return s.triggers[i], true
}

func (s *State) TriggerCount() int {
	return len(s.triggers)
}

// fireTriggers срабатывает включённые, ещё не сработавшие триггеры вида kind.
// Для on_player_enter учитываются только триггеры под cells.
func (s *State) fireTriggers(kind module.TriggerKind, who domain.EntityID, cells []domain.Position) {
	candidates := make([]int, 0, 1)
	if kind == module.TriggerOnPlayerEnter {
		for _, c := range cells {
			if h := s.grid.TriggerAt(c.X, c.Y); h != grid.None && !containsInt(candidates, h) {
				candidates = append(candidates, h)
			}
		}
	} else {
		for i := range s.Def.Triggers {
			candidates = append(candidates, i)
		}
	}

	for _, i := range candidates {
		def := &s.Def.Triggers[i]
		st := &s.triggers[i]
		if def.TriggerKind() != kind || !st.Enabled || st.Fired {
			continue
		}
		st.Fired = true

		s.log.WithFields(logrus.Fields{
			"trigger":   i,
			"kind":      kind.String(),
			"entity_id": who,
		}).Info("Trigger fired")

		if def.Script == "" || s.env.Scripts == nil {
			continue
		}
		if cb := s.env.Scripts.Callback(def.Script); cb != nil {
			s.queue(cb, domain.HookTrigger, domain.CallbackContext{Owner: who, Trigger: i})
		} else {
			s.log.WithField("script", def.Script).Warn("Trigger script not found")
		}
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
