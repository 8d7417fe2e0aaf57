package admin

import (
	"fmt"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine/handlers"
)

// TeleportPayload: { "x": 10, "y": 10 }
type TeleportPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func HandleTeleport(ctx handlers.Context, p TeleportPayload) (handlers.Result, error) {
	if err := ctx.Sim.Teleport(ctx.Actor.ID, domain.Position{X: p.X, Y: p.Y}); err != nil {
		return handlers.Result{Msg: fmt.Sprintf("Teleport failed: %v", err), MsgType: "ERROR"}, nil
	}
	return handlers.Result{Msg: "Teleported via Admin Magic", MsgType: "INFO"}, nil
}

// SpawnPayload: { "template": "goblin" }
type SpawnPayload struct {
	Template string `json:"template"`
}

func HandleSpawn(ctx handlers.Context, p SpawnPayload) (handlers.Result, error) {
	// Спавним рядом с актором, иначе под ноги не встанет
	pos := ctx.Actor.Pos.Shift(ctx.Actor.Size.W, 0)
	if ctx.Actor.Size.W == 0 {
		pos = ctx.Actor.Pos.Shift(1, 0)
	}
	if _, err := ctx.Sim.SpawnActor(p.Template, pos); err != nil {
		return handlers.Result{Msg: fmt.Sprintf("Spawn failed: %v", err), MsgType: "ERROR"}, nil
	}
	return handlers.Result{Msg: fmt.Sprintf("Spawned %s", p.Template), MsgType: "INFO"}, nil
}

func HandleHeal(ctx handlers.Context) (handlers.Result, error) {
	if ctx.Actor.Stats != nil {
		ctx.Actor.Stats.Revive(ctx.Actor.Stats.MaxHP)
	}
	return handlers.Result{Msg: "Fully Healed", MsgType: "INFO"}, nil
}

type KillPayload struct {
	TargetID string `json:"targetId"`
}

func HandleKill(ctx handlers.Context, p KillPayload) (handlers.Result, error) {
	id, err := handlers.ParseEntityID(p.TargetID)
	if err != nil {
		return handlers.Result{}, fmt.Errorf("invalid targetId: %w", err)
	}
	target := ctx.Sim.Entity(id)
	if target == nil {
		return handlers.Result{Msg: "Target not found", MsgType: "ERROR"}, nil
	}
	if target.Stats != nil {
		target.Stats.TakeDamage(target.Stats.HP)
	}
	return handlers.Result{Msg: fmt.Sprintf("Smited %s", target.Name), MsgType: "COMBAT"}, nil
}

// CellPayload: { "x": 4, "y": 2 }
type CellPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func HandleSpawnEncounter(ctx handlers.Context, p CellPayload) (handlers.Result, error) {
	n, err := ctx.Sim.SpawnEncounterAt(domain.Position{X: p.X, Y: p.Y})
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Msg: fmt.Sprintf("Encounter spawned %d actors", n), MsgType: "INFO"}, nil
}

// TriggerPayload: { "index": 0, "enabled": false }
type TriggerPayload struct {
	Index   int  `json:"index"`
	Enabled bool `json:"enabled"`
}

func HandleTrigger(ctx handlers.Context, p TriggerPayload) (handlers.Result, error) {
	if err := ctx.Sim.SetTriggerEnabled(p.Index, p.Enabled); err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Msg: fmt.Sprintf("Trigger %d enabled=%v", p.Index, p.Enabled), MsgType: "INFO"}, nil
}

// PropPayload: { "x": 5, "y": 3, "enabled": true }
type PropPayload struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Enabled bool `json:"enabled"`
}

func HandleProp(ctx handlers.Context, p PropPayload) (handlers.Result, error) {
	if err := ctx.Sim.SetPropEnabled(domain.Position{X: p.X, Y: p.Y}, p.Enabled); err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Msg: fmt.Sprintf("Prop at (%d,%d) enabled=%v", p.X, p.Y, p.Enabled), MsgType: "INFO"}, nil
}
