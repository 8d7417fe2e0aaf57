package area

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/internal/systems"
	"tactics-sim/pkg/module"
)

// Prop - экземпляр пропа в зоне с его интерактивным состоянием.
type Prop struct {
	Def     *module.PropDef
	Pos     domain.Position
	Enabled bool
	Open    bool               // двери и контейнеры
	Items   []domain.ItemStack // содержимое контейнера

	markedForRemoval bool
}

func (p *Prop) Footprint() domain.Rect {
	return domain.FootprintOf(p.Pos, p.Def.Size)
}

func (p *Prop) offsets(cells []domain.Position) []domain.Position {
	out := make([]domain.Position, len(cells))
	for i, c := range cells {
		out[i] = p.Pos.Add(c)
	}
	return out
}

// AddProp занимает первый свободный слот (или новый) и пишет footprint.
func (s *State) AddProp(def *module.PropDef, pos domain.Position, enabled bool) (int, error) {
	fp := domain.FootprintOf(pos, def.Size)
	if !s.rectInBounds(fp) {
		return grid.None, fmt.Errorf("%w: prop %s at %v", ErrOutOfBounds, def.ID, pos)
	}
	overlap := false
	fp.Each(func(x, y int) {
		if s.grid.PropAt(x, y) != grid.None {
			overlap = true
		}
	})
	if overlap {
		return grid.None, fmt.Errorf("%w: prop %s at %v", ErrPropOverlap, def.ID, pos)
	}

	p := &Prop{Def: def, Pos: pos, Enabled: enabled}
	if def.Door != nil {
		p.Open = def.Door.InitiallyOpen
	}
	if def.Container {
		p.Items = append([]domain.ItemStack(nil), def.Items...)
	}

	// Свободный слот ищется линейно
	h := -1
	for i, slot := range s.props {
		if slot == nil {
			h = i
			break
		}
	}
	if h < 0 {
		s.props = append(s.props, nil)
		h = len(s.props) - 1
	}
	s.props[h] = p

	s.grid.SetPropPoints(h, fp)
	s.applyPropCells(p)
	if def.Opaque || (def.Door != nil && len(def.Door.ClosedInvis) > 0) {
		s.RefreshVisibility()
	}
	return h, nil
}

// applyPropCells выставляет биты прохода и обзора клеток пропа.
func (s *State) applyPropCells(p *Prop) {
	fp := p.Footprint()
	if p.Def.Impassable {
		s.grid.SetPropPassCells(fp.Points(), false)
	}
	if p.Def.Opaque {
		s.grid.SetPropVisCells(fp.Points(), false)
	}
	if d := p.Def.Door; d != nil {
		s.grid.SetPropPassCells(p.offsets(d.ClosedImpass), p.Open)
		s.grid.SetPropVisCells(p.offsets(d.ClosedInvis), p.Open)
	}
}

// recomputePropGrids пересобирает кэши с нуля (после восстановления).
func (s *State) recomputePropGrids() {
	s.grid.ResetPropGrids()
	for _, p := range s.props {
		if p != nil {
			s.applyPropCells(p)
		}
	}
}

// Prop возвращает проп по хэндлу или nil.
func (s *State) Prop(h int) *Prop {
	if h < 0 || h >= len(s.props) {
		return nil
	}
	return s.props[h]
}

// PropCount - число занятых слотов.
func (s *State) PropCount() int {
	n := 0
	for _, p := range s.props {
		if p != nil {
			n++
		}
	}
	return n
}

func (s *State) livePropOrWarn(h int, op string) *Prop {
	p := s.Prop(h)
	if p == nil {
		s.log.WithFields(logrus.Fields{"prop": h, "op": op}).Warn("Prop not found, ignoring")
	}
	return p
}

// ToggleProp открывает/закрывает дверь или контейнер. Меняются только
// клетки, помеченные в определении двери, а не весь footprint.
func (s *State) ToggleProp(h int) bool {
	p := s.livePropOrWarn(h, "toggle")
	if p == nil {
		return false
	}
	if !p.Enabled {
		s.log.WithField("prop", h).Info("Prop is disabled, toggle ignored")
		return false
	}
	if p.Def.Door == nil && !p.Def.Container {
		s.log.WithField("prop", h).Warn("Prop is not interactive, toggle ignored")
		return false
	}

	p.Open = !p.Open
	if d := p.Def.Door; d != nil {
		s.grid.SetPropPassCells(p.offsets(d.ClosedImpass), p.Open)
		s.grid.SetPropVisCells(p.offsets(d.ClosedInvis), p.Open)
		if len(d.ClosedInvis) > 0 {
			s.RefreshVisibility()
		}
	}

	s.log.WithFields(logrus.Fields{"prop": h, "prop_id": p.Def.ID, "open": p.Open}).Debug("Prop toggled")
	return true
}

// SetPropEnabled включает или выключает интерактивность пропа.
func (s *State) SetPropEnabled(h int, enabled bool) bool {
	p := s.livePropOrWarn(h, "set_enabled")
	if p == nil {
		return false
	}
	p.Enabled = enabled
	return true
}

// MarkPropForRemoval - проп снимется при следующем Update.
func (s *State) MarkPropForRemoval(h int) bool {
	p := s.livePropOrWarn(h, "remove")
	if p == nil {
		return false
	}
	p.markedForRemoval = true
	return true
}

// sweepProps снимает помеченные пропы. Повторный вызов без новых
// пометок ничего не делает.
func (s *State) sweepProps() int {
	removed := 0
	refreshVis := false
	for h, p := range s.props {
		if p == nil || !p.markedForRemoval {
			continue
		}
		s.grid.ClearPropPoints(h, p.Footprint())
		if p.Def.Opaque || (p.Def.Door != nil && len(p.Def.Door.ClosedInvis) > 0) {
			refreshVis = true
		}
		s.props[h] = nil
		removed++
	}
	if removed > 0 {
		s.recomputePropGrids()
		if refreshVis {
			s.RefreshVisibility()
		}
		s.log.WithField("count", removed).Debug("Props removed")
	}
	return removed
}

// TakeFromContainer перекладывает предметы из открытого контейнера.
func (s *State) TakeFromContainer(h int, itemID string, qty int, into []domain.ItemStack) ([]domain.ItemStack, error) {
	p := s.Prop(h)
	if p == nil || !p.Def.Container {
		return into, fmt.Errorf("prop %d is not a container", h)
	}
	if !p.Open {
		return into, fmt.Errorf("container %d is closed", h)
	}
	rest, out, err := systems.TransferItem(p.Items, into, itemID, qty)
	if err != nil {
		return into, err
	}
	p.Items = rest
	return out, nil
}
