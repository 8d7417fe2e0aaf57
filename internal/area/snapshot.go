package area

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/module"
)

// PropSnapshot - проп в слоте Slot. Пустые слоты не пишутся.
type PropSnapshot struct {
	Slot    int                `json:"slot"`
	ID      string             `json:"id"`
	X       int                `json:"x"`
	Y       int                `json:"y"`
	Enabled bool               `json:"enabled"`
	Open    bool               `json:"open"`
	Items   []domain.ItemStack `json:"items,omitempty"`
}

// Snapshot - сохраняемое состояние зоны. Сущности сохраняет сессия,
// поверхности принадлежат эффектам и пересоздаются ими.
type Snapshot struct {
	ID        string         `json:"id"`
	Explored  []uint64       `json:"-"` // пишется отдельным бинарным блоком
	Props     []PropSnapshot `json:"props"`
	Triggers  []TriggerState `json:"triggers"`
	Merchants []Merchant     `json:"merchants"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:       s.ID,
		Explored: s.vis.ExploredWords(),
		Triggers: append([]TriggerState(nil), s.triggers...),
	}
	for h, p := range s.props {
		if p == nil || p.markedForRemoval {
			continue
		}
		snap.Props = append(snap.Props, PropSnapshot{
			Slot:    h,
			ID:      p.Def.ID,
			X:       p.Pos.X,
			Y:       p.Pos.Y,
			Enabled: p.Enabled,
			Open:    p.Open,
			Items:   append([]domain.ItemStack(nil), p.Items...),
		})
	}
	for _, m := range s.Merchants() {
		snap.Merchants = append(snap.Merchants, Merchant{ID: m.ID, Items: append([]domain.ItemStack(nil), m.Items...)})
	}
	return snap
}

// Restore пересобирает зону из сохранения: пропы и флаги триггеров
// воспроизводятся, кэши клеток и разведанная карта выводятся заново.
// Сущности расставляет сессия через PlaceEntity.
func Restore(def *module.AreaDef, snap *Snapshot, env *Env) (*State, error) {
	// 1. Количество триггеров должно совпадать с определением
	if len(snap.Triggers) != len(def.Triggers) {
		return nil, fmt.Errorf("%w: area %s has %d triggers, save has %d",
			ErrTriggerCountMismatch, def.ID, len(def.Triggers), len(snap.Triggers))
	}

	s, err := newState(def, env)
	if err != nil {
		return nil, err
	}
	copy(s.triggers, snap.Triggers)

	// 2. Пропы в те же слоты
	for _, ps := range snap.Props {
		pd, ok := env.Module.Prop(ps.ID)
		if !ok {
			s.log.WithField("prop_id", ps.ID).Warn("Saved prop definition not found, skipping")
			continue
		}
		if ps.Slot < 0 {
			return nil, fmt.Errorf("area %s: bad prop slot %d", def.ID, ps.Slot)
		}
		for len(s.props) <= ps.Slot {
			s.props = append(s.props, nil)
		}
		if s.props[ps.Slot] != nil {
			return nil, fmt.Errorf("area %s: duplicate prop slot %d", def.ID, ps.Slot)
		}
		p := &Prop{
			Def:     pd,
			Pos:     domain.Position{X: ps.X, Y: ps.Y},
			Enabled: ps.Enabled,
			Open:    ps.Open,
			Items:   append([]domain.ItemStack(nil), ps.Items...),
		}
		if !s.rectInBounds(p.Footprint()) {
			return nil, fmt.Errorf("%w: saved prop %s at %v", ErrOutOfBounds, ps.ID, p.Pos)
		}
		s.props[ps.Slot] = p
		s.grid.SetPropPoints(ps.Slot, p.Footprint())
	}
	s.recomputePropGrids()

	// 3. Торговцы
	for _, m := range snap.Merchants {
		s.merchants[m.ID] = &Merchant{ID: m.ID, Items: append([]domain.ItemStack(nil), m.Items...)}
	}

	// 4. Разведанная карта
	if err := s.vis.SetExploredWords(snap.Explored); err != nil {
		return nil, fmt.Errorf("area %s: %w", def.ID, err)
	}
	return s, nil
}
