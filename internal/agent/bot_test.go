package agent

import (
	"encoding/json"
	"os"
	"testing"

	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recorder struct {
	cmds []api.ClientCommand
}

func (r *recorder) ProcessCommand(cmd api.ClientCommand) {
	r.cmds = append(r.cmds, cmd)
}

func entity(id, faction string, x, y, ap int) api.EntityView {
	ev := api.EntityView{ID: id, Faction: faction}
	ev.Pos.X, ev.Pos.Y = x, y
	ev.Size.W, ev.Size.H = 1, 1
	ev.Stats = &api.StatsView{HP: 10, MaxHP: 10, AP: ap}
	return ev
}

func frame(active string, ents ...api.EntityView) *api.AreaView {
	return &api.AreaView{InCombat: true, ActiveEntityID: active, Entities: ents}
}

func TestBotDecisions(t *testing.T) {
	tests := []struct {
		name       string
		view       *api.AreaView
		wantAction string
	}{
		{
			name:       "Adjacent enemy is attacked",
			view:       frame("1", entity("1", "friendly", 2, 2, 6), entity("2", "hostile", 3, 3, 6)),
			wantAction: "ATTACK",
		},
		{
			name:       "Distant enemy is approached",
			view:       frame("1", entity("1", "friendly", 2, 2, 6), entity("2", "hostile", 6, 2, 6)),
			wantAction: "MOVE",
		},
		{
			name:       "No enemy ends the turn",
			view:       frame("1", entity("1", "friendly", 2, 2, 6)),
			wantAction: "WAIT",
		},
		{
			name:       "Not enough AP to attack",
			view:       frame("1", entity("1", "friendly", 2, 2, 2), entity("2", "hostile", 2, 3, 6)),
			wantAction: "WAIT",
		},
		{
			name:       "Other turn holder is ignored",
			view:       frame("2", entity("1", "friendly", 2, 2, 6), entity("2", "hostile", 6, 2, 6)),
			wantAction: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			b := NewBot("1", rec, nil)
			b.HandleView(tt.view)

			if tt.wantAction == "" {
				if len(rec.cmds) != 0 {
					t.Fatalf("Expected no commands, got %v", rec.cmds)
				}
				return
			}
			if len(rec.cmds) != 1 {
				t.Fatalf("Expected 1 command, got %d", len(rec.cmds))
			}
			if rec.cmds[0].Action != tt.wantAction {
				t.Errorf("Expected %s, got %s", tt.wantAction, rec.cmds[0].Action)
			}
			if rec.cmds[0].Token != "1" {
				t.Errorf("Expected token 1, got %s", rec.cmds[0].Token)
			}
		})
	}
}

func TestBotMovesTowardTarget(t *testing.T) {
	rec := &recorder{}
	b := NewBot("1", rec, nil)
	b.HandleView(frame("1", entity("1", "friendly", 5, 5, 6), entity("2", "hostile", 1, 8, 6)))

	var dir api.DirectionPayload
	if err := json.Unmarshal(rec.cmds[0].Payload, &dir); err != nil {
		t.Fatalf("Bad payload: %v", err)
	}
	if dir.Dx != -1 || dir.Dy != 1 {
		t.Errorf("Expected step (-1, 1), got (%d, %d)", dir.Dx, dir.Dy)
	}
}

func TestBotWaitsForFrameChange(t *testing.T) {
	rec := &recorder{}
	b := NewBot("1", rec, nil)
	view := frame("1", entity("1", "friendly", 2, 2, 6), entity("2", "hostile", 6, 2, 6))

	b.HandleView(view)
	b.HandleView(view)
	if len(rec.cmds) != 1 {
		t.Fatalf("Expected 1 command while frame is unchanged, got %d", len(rec.cmds))
	}

	// Шаг сделан - следующий кадр даёт новую команду
	moved := frame("1", entity("1", "friendly", 3, 2, 5), entity("2", "hostile", 6, 2, 6))
	b.HandleView(moved)
	if len(rec.cmds) != 2 {
		t.Fatalf("Expected 2 commands after state change, got %d", len(rec.cmds))
	}

	// Зависшая команда завершает ход
	for i := 0; i < staleFrames; i++ {
		b.HandleView(moved)
	}
	if last := rec.cmds[len(rec.cmds)-1]; last.Action != "WAIT" {
		t.Errorf("Expected WAIT after stale frames, got %s", last.Action)
	}
}

func TestBotSkipsBusyFrames(t *testing.T) {
	rec := &recorder{}
	b := NewBot("1", rec, nil)
	me := entity("1", "friendly", 2, 2, 6)
	me.Busy = true
	b.HandleView(frame("1", me, entity("2", "hostile", 3, 2, 6)))
	if len(rec.cmds) != 0 {
		t.Errorf("Expected no commands while busy, got %v", rec.cmds)
	}
}
