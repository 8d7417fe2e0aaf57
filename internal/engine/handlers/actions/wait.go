package actions

import (
	"fmt"

	"tactics-sim/internal/engine/handlers"
)

// HandleWait завершает ход в бою. Вне боя ничего не делает.
func HandleWait(ctx handlers.Context) (handlers.Result, error) {
	ctx.Sim.EndTurn(ctx.Actor.ID)

	return handlers.Result{
		Msg:     fmt.Sprintf("%s пропускает ход.", ctx.Actor.Name),
		MsgType: "INFO",
	}, nil
}
