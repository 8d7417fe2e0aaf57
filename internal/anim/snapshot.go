package anim

import (
	"errors"
	"fmt"

	"tactics-sim/internal/domain"
)

var ErrUnknownKind = errors.New("unknown animation kind")

// TaskSnapshot - сериализуемое состояние анимации. Поля параметров
// заполняются только для своего вида.
type TaskSnapshot struct {
	Kind     string `json:"kind"`
	Owner    int    `json:"owner"` // индекс сущности в сохранении
	Elapsed  uint32 `json:"elapsed"`
	Millis   uint32 `json:"millis"`
	Infinite bool   `json:"infinite,omitempty"`
	Effect   int    `json:"effect"` // NoEffect или индекс эффекта

	Updates     []UpdateSnapshot `json:"updates,omitempty"`
	Completions []string         `json:"completions,omitempty"`

	Color     *domain.Color     `json:"color,omitempty"`
	ColorSec  *domain.Color     `json:"colorSec,omitempty"`
	ScaleFrom float32           `json:"scaleFrom,omitempty"`
	ScaleTo   float32           `json:"scaleTo,omitempty"`
	SubX      float32           `json:"subX,omitempty"`
	SubY      float32           `json:"subY,omitempty"`
	Layers    map[string]string `json:"layers,omitempty"`
	Image     string            `json:"image,omitempty"`
	AreaID    string            `json:"areaId,omitempty"`
	X         int               `json:"x,omitempty"`
	Y         int               `json:"y,omitempty"`
	Rate      float32           `json:"rate,omitempty"`
	DrawAbove bool              `json:"drawAbove,omitempty"`
}

// UpdateSnapshot - ещё не сработавший update-колбэк.
type UpdateSnapshot struct {
	At  uint32 `json:"at"`
	Ref string `json:"ref"`
}

// Snapshot сохраняет сериализуемые задачи. Несериализуемые виды, задачи
// с выставленным флагом и задачи владельцев вне сохранения молча пропускаются.
// Колбэки без Ref (не скриптовые) тоже теряются.
func (s *Scheduler) Snapshot(indexOf func(domain.EntityID) (int, bool)) []TaskSnapshot {
	var out []TaskSnapshot
	s.each(func(t *Task) {
		if t.flag.Requested() {
			return
		}
		owner, ok := indexOf(t.owner)
		if !ok {
			return
		}
		snap := TaskSnapshot{
			Kind:     t.Tag().String(),
			Owner:    owner,
			Elapsed:  t.elapsed,
			Millis:   t.duration.Millis,
			Infinite: t.duration.Infinite,
			Effect:   t.effect,
		}
		if !t.kind.snapshot(&snap) {
			return
		}
		for _, u := range t.updates[t.nextUpdate:] {
			if p, ok := u.Callback.(domain.Persistent); ok {
				snap.Updates = append(snap.Updates, UpdateSnapshot{At: u.At, Ref: p.Ref()})
			}
		}
		for _, cb := range t.completions {
			if p, ok := cb.(domain.Persistent); ok {
				snap.Completions = append(snap.Completions, p.Ref())
			}
		}
		out = append(out, snap)
	})
	return out
}

// RestoreTask собирает задачу из снимка. resolve восстанавливает колбэк
// по Ref; nil означает, что колбэк потерян.
func RestoreTask(snap TaskSnapshot, owner domain.EntityID, resolve func(ref string) domain.Callback) (*Task, error) {
	var kind Kind
	switch ParseTag(snap.Kind) {
	case TagWait:
		kind = &Wait{}
	case TagNonBlockingWait:
		kind = &NonBlockingWait{}
	case TagEntityColor:
		c := &EntityColor{Color: domain.White}
		if snap.Color != nil {
			c.Color = *snap.Color
		}
		if snap.ColorSec != nil {
			c.ColorSec = *snap.ColorSec
		}
		kind = c
	case TagEntityScale:
		kind = &EntityScale{From: snap.ScaleFrom, To: snap.ScaleTo}
	case TagEntitySubpos:
		kind = &EntitySubpos{X: snap.SubX, Y: snap.SubY}
	case TagEntityImageLayer:
		kind = &EntityImageLayer{Layers: snap.Layers}
	case TagParticleGenerator:
		kind = &ParticleGenerator{
			Image:     snap.Image,
			AreaID:    snap.AreaID,
			Pos:       domain.Position{X: snap.X, Y: snap.Y},
			Rate:      snap.Rate,
			DrawAbove: snap.DrawAbove,
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, snap.Kind)
	}

	t := NewTask(owner, kind, Duration{Millis: snap.Millis, Infinite: snap.Infinite})
	t.elapsed = snap.Elapsed
	t.effect = snap.Effect

	if resolve != nil {
		for _, u := range snap.Updates {
			if cb := resolve(u.Ref); cb != nil {
				t.WithUpdate(u.At, cb)
			}
		}
		for _, ref := range snap.Completions {
			if cb := resolve(ref); cb != nil {
				t.WithCompletion(cb)
			}
		}
	}
	return t, nil
}
