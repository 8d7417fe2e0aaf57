package actions

import (
	"fmt"

	"tactics-sim/internal/engine/handlers"
	"tactics-sim/pkg/api"
)

func HandleAttack(ctx handlers.Context, p api.EntityPayload) (handlers.Result, error) {
	// 1. Поиск цели
	targetID, err := handlers.ParseEntityID(p.TargetID)
	if err != nil {
		return handlers.Result{}, fmt.Errorf("invalid targetId: %w", err)
	}
	target := ctx.Sim.Entity(targetID)
	if target == nil {
		return handlers.ErrorResult("Цель не найдена."), nil
	}

	// 2. Дистанцию, видимость и очки действий проверяет сессия;
	// урон будет нанесён, когда сработает анимация
	if err := ctx.Sim.RequestAttack(ctx.Actor.ID, target.ID, p.Ranged); err != nil {
		return handlers.ErrorResult(fmt.Sprintf("Атака невозможна: %v", err)), nil
	}

	return handlers.Result{
		Msg:     fmt.Sprintf("%s атакует %s.", ctx.Actor.Name, target.Name),
		MsgType: "COMBAT",
	}, nil
}
