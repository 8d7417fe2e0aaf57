package engine

import (
	"os"
	"path/filepath"
	"testing"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/script"
)

const burnScript = `
hooks := {
	on_trigger: func(engine, ctx) {
		engine.apply_effect("burning", 0, "", [1, 0.5, 0.5, 1])
		engine.delay(300)
	},
	on_anim_complete: func(engine, ctx) {
		engine.feedback("done")
	}
}
`

func TestScriptAppliesEffect(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "burn"+script.Ext), []byte(burnScript), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.RoundMillis = 0
	scripts := script.New(dir)
	s := NewSession(cfg, testModule(t), scripts)
	scripts.SetHost(s)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h := hero(t, s)

	cb := scripts.Callback("burn")
	if cb == nil {
		t.Fatal("Expected callback for burn script")
	}
	cb.Invoke(domain.HookTrigger, domain.CallbackContext{AreaID: "start", Owner: h.ID})

	if s.Effects.Len() != 1 || s.Anims.Len() != 2 {
		t.Fatalf("Expected 1 effect and 2 animations, got %d and %d", s.Effects.Len(), s.Anims.Len())
	}

	// Задержка 300 мс завершается на четвёртом тике
	runTicks(s, 4)
	if h.Visual.Color != (domain.Color{1, 0.5, 0.5, 1}) {
		t.Errorf("Expected effect tint on hero, got %v", h.Visual.Color)
	}
	if s.Anims.Len() != 1 {
		t.Errorf("Expected only the effect tint left, got %d animations", s.Anims.Len())
	}
	fb := s.Area().Feedback()
	if len(fb) == 0 || fb[len(fb)-1].Text != "done" {
		t.Errorf("Expected 'done' feedback from completion hook, got %+v", fb)
	}

	if !s.RemoveEffect(0) {
		t.Fatal("Expected effect slot 0 to be removed")
	}
	runTicks(s, 1)
	if s.Effects.Len() != 0 || s.Anims.Len() != 0 {
		t.Errorf("Expected effect and its tint gone, got %d effects and %d animations", s.Effects.Len(), s.Anims.Len())
	}
	if h.Visual.Color != domain.White {
		t.Errorf("Expected hero color restored, got %v", h.Visual.Color)
	}
}

func TestTogglePropAtSkipsReach(t *testing.T) {
	s := newTestSession(t, testConfig(), nil)
	a := s.Area()
	crate := a.Prop(a.PropIndexAt(5, 3))

	if !s.TogglePropAt("start", domain.Position{X: 5, Y: 3}) || !crate.Open {
		t.Error("Expected distant crate to open")
	}
	if s.TogglePropAt("start", domain.Position{X: 2, Y: 2}) {
		t.Error("Expected no toggle on an empty cell")
	}
	if s.TogglePropAt("nowhere", domain.Position{X: 5, Y: 3}) {
		t.Error("Expected no toggle in an unknown area")
	}
}
