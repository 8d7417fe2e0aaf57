package actions

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
	"tactics-sim/pkg/api"
)

// HandleInteract переключает проп (дверь, рычаг, сундук) в соседней клетке.
func HandleInteract(ctx handlers.Context, p api.PositionPayload) (handlers.Result, error) {
	pos := domain.Position{X: p.X, Y: p.Y}
	if err := ctx.Sim.ToggleProp(ctx.Actor.ID, pos); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Ничего не происходит: %v", err)), nil
	}
	return handlers.EmptyResult(), nil
}
