package engine

import (
	"strings"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
	"tactics-sim/pkg/api"
)

// BuildView создает "снимок" текущей зоны глазами партии.
// Вызывается под блокировкой сессии (из Runner или отладки).
func (s *Session) BuildView() *api.AreaView {
	a := s.Area()
	if a == nil {
		return nil
	}

	view := &api.AreaView{
		Type:     "AREA",
		Tick:     s.elapsed,
		AreaID:   a.ID,
		Grid:     api.GridMeta{Width: a.Width(), Height: a.Height()},
		InCombat: s.Turns.InCombat(),
	}
	if s.Turns.InCombat() {
		if id := s.Turns.Active(); !id.IsNil() {
			view.ActiveEntityID = id.Token()
		}
	}

	// 1. Видимость и туман войны построчно
	var vis, exp strings.Builder
	for y := 0; y < a.Height(); y++ {
		vis.Reset()
		exp.Reset()
		for x := 0; x < a.Width(); x++ {
			vis.WriteByte(bit(a.IsVisible(x, y)))
			exp.WriteByte(bit(a.IsExplored(x, y)))
		}
		view.Visible = append(view.Visible, vis.String())
		view.Explored = append(view.Explored, exp.String())
	}

	// 2. Сущности: партию видно всегда, остальных - в поле зрения
	view.Entities = make([]api.EntityView, 0)
	for _, id := range a.Entities() {
		e := s.Entities.Get(id)
		if e == nil {
			continue
		}
		if !e.IsParty() && !a.IsRectVisible(e.Footprint()) {
			continue
		}
		view.Entities = append(view.Entities, s.toEntityView(e))
	}

	// 3. Пропы на исследованных клетках
	for _, p := range a.Snapshot().Props {
		if !a.IsExplored(p.X, p.Y) {
			continue
		}
		view.Props = append(view.Props, api.PropView{
			Slot: p.Slot, ID: p.ID, X: p.X, Y: p.Y, Open: p.Open, Enabled: p.Enabled,
		})
	}

	// 4. Примитивы анимаций по слоям
	view.Draw = make(map[string][]api.PrimitiveView)
	for _, b := range []anim.Bucket{anim.BucketBelow, anim.BucketAbove} {
		for _, p := range s.Anims.Draw(b) {
			if p.AreaID != a.ID {
				continue
			}
			view.Draw[b.String()] = append(view.Draw[b.String()], toPrimitiveView(p))
		}
	}

	for _, f := range a.Feedback() {
		view.Feedback = append(view.Feedback, toFeedbackView(f))
	}

	// Копия логов
	view.Logs = make([]api.LogEntry, len(s.Logs))
	copy(view.Logs, s.Logs)
	return view
}

// toEntityView конвертирует доменную сущность в DTO для отправки клиенту.
func (s *Session) toEntityView(e *domain.Entity) api.EntityView {
	view := api.EntityView{
		ID:      e.ID.Token(),
		DefID:   e.DefID,
		Name:    e.Name,
		Faction: e.Faction.String(),
		Party:   e.IsParty(),
		Busy:    s.Anims.HasBlocking(e.ID),
	}
	fp := e.Footprint()
	view.Pos.X, view.Pos.Y = fp.X, fp.Y
	view.Size.W, view.Size.H = fp.W, fp.H

	view.Visual = api.VisualView{
		Color:    e.Visual.Color,
		ColorSec: e.Visual.ColorSec,
		SubX:     e.Visual.Subpos.X,
		SubY:     e.Visual.Subpos.Y,
		Scale:    e.Visual.Scale,
		Layers:   e.Visual.ImageLayers,
	}

	if e.Stats != nil {
		view.Stats = &api.StatsView{HP: e.Stats.HP, MaxHP: e.Stats.MaxHP, IsDead: e.Stats.IsDead}
		if e.AI != nil && s.Turns.InCombat() {
			view.Stats.AP = e.AI.ActionPoints
		}
	}

	// Инвентарь (только партия)
	if e.IsParty() {
		for _, st := range e.Inventory {
			name := st.ID
			if def, ok := s.Module.Item(st.ID); ok && def.Name != "" {
				name = def.Name
			}
			view.Inventory = append(view.Inventory, api.ItemView{ID: st.ID, Name: name, Quantity: st.Quantity})
		}
	}
	return view
}

func toPrimitiveView(p anim.Primitive) api.PrimitiveView {
	v := api.PrimitiveView{
		Kind:  p.Tag.String(),
		Image: p.Image,
		X:     p.X,
		Y:     p.Y,
		Scale: p.Scale,
		Color: p.Color,
		Count: p.Count,
	}
	if !p.Owner.IsNil() {
		v.Owner = p.Owner.Token()
	}
	return v
}

func toFeedbackView(f area.Feedback) api.FeedbackView {
	return api.FeedbackView{Text: f.Text, X: f.Pos.X, Y: f.Pos.Y, Age: f.Age}
}

func bit(v bool) byte {
	if v {
		return '1'
	}
	return '0'
}
