package actions

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
	"tactics-sim/pkg/api"
)

// HandlePickup обрабатывает команду PICKUP - взять предметы из открытого контейнера
func HandlePickup(ctx handlers.Context, p api.ItemPayload) (handlers.Result, error) {
	qty := p.Count
	if qty == 0 {
		qty = 1
	}
	if err := ctx.Sim.TakeFromContainer(ctx.Actor.ID, domain.Position{X: p.X, Y: p.Y}, p.ItemID, qty); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Не удалось взять: %v", err)), nil
	}
	return handlers.Result{Msg: fmt.Sprintf("%s берёт %s x%d.", ctx.Actor.Name, p.ItemID, qty), MsgType: "INFO"}, nil
}

// HandleTrade обрабатывает команду TRADE - покупка или продажа у торговца
func HandleTrade(ctx handlers.Context, p api.TradePayload) (handlers.Result, error) {
	qty := p.Count
	if qty == 0 {
		qty = 1
	}
	if err := ctx.Sim.Trade(ctx.Actor.ID, p.MerchantID, p.ItemID, qty, p.Sell); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Сделка не состоялась: %v", err)), nil
	}
	verb := "покупает"
	if p.Sell {
		verb = "продаёт"
	}
	return handlers.Result{Msg: fmt.Sprintf("%s %s %s x%d.", ctx.Actor.Name, verb, p.ItemID, qty), MsgType: "INFO"}, nil
}
