package actions

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
	"tactics-sim/pkg/api"
)

// HandleMove - шаг на одну клетку. Если клетку занимает враг, шаг
// превращается в атаку.
func HandleMove(ctx handlers.Context, p api.DirectionPayload) (handlers.Result, error) {
	if ctx.Actor.AI == nil {
		return handlers.EmptyResult(), nil
	}

	to := ctx.Actor.Pos.Shift(p.Dx, p.Dy)

	// Bump-атака: в клетке стоит враг
	if other := ctx.Sim.Entity(ctx.Sim.EntityAt(to)); other != nil && other.ID != ctx.Actor.ID && ctx.Actor.IsHostileTo(other) {
		if err := ctx.Sim.RequestAttack(ctx.Actor.ID, other.ID, false); err != nil {
			return handlers.ErrorResult(fmt.Sprintf("Атака невозможна: %v", err)), nil
		}
		return handlers.Result{Msg: fmt.Sprintf("%s атакует %s.", ctx.Actor.Name, other.Name), MsgType: "COMBAT"}, nil
	}

	if err := ctx.Sim.RequestMove(ctx.Actor.ID, []domain.Position{to}); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Путь прегражден: %v", err)), nil
	}
	return handlers.EmptyResult(), nil
}

// HandlePath - движение по готовому пути (клик по карте).
func HandlePath(ctx handlers.Context, p api.PathPayload) (handlers.Result, error) {
	path := make([]domain.Position, len(p.Path))
	for i, step := range p.Path {
		path[i] = domain.Position{X: step.X, Y: step.Y}
	}
	if err := ctx.Sim.RequestMove(ctx.Actor.ID, path); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Путь прегражден: %v", err)), nil
	}
	return handlers.EmptyResult(), nil
}
