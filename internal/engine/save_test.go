package engine

import (
	"path/filepath"
	"testing"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
	"tactics-sim/internal/infrastructure/storage"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	cfg := testConfig()
	cfg.RoundMillis = 0 // раунды не идут, эффект не тикает
	s := newTestSession(t, cfg, fakeScripts{"burn": &recorder{}})
	h := hero(t, s)
	g := mustSpawn(t, s, "goblin", 10, 6)

	if err := s.Teleport(h.ID, domain.Position{X: 4, Y: 3}); err != nil {
		t.Fatalf("Teleport failed: %v", err)
	}
	runTicks(s, 1)
	if err := s.ToggleProp(h.ID, domain.Position{X: 5, Y: 3}); err != nil {
		t.Fatalf("ToggleProp failed: %v", err)
	}
	slot, err := s.ApplyEffect(EffectSpec{Name: "burn", Owner: h.ID, Script: "burn", Rounds: 3},
		anim.NewWait(h.ID, 10000))
	if err != nil {
		t.Fatalf("ApplyEffect failed: %v", err)
	}
	// Атака не сериализуется и в сохранение не попадает
	s.Anims.Queue(anim.NewMeleeAttack(h.ID, g.ID))
	runTicks(s, 1)

	path, err := s.Save(store)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Ext(path) != storage.FileExt {
		t.Errorf("Expected %s file, got %s", storage.FileExt, path)
	}

	loaded := NewSession(cfg, testModule(t), fakeScripts{"burn": &recorder{}})
	if err := loaded.Load(store, path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 1. Сессия и партия
	if loaded.Area() == nil || loaded.Area().ID != "start" {
		t.Fatalf("Expected current area 'start', got %v", loaded.Area())
	}
	if loaded.elapsed != s.elapsed {
		t.Errorf("Expected elapsed %d, got %d", s.elapsed, loaded.elapsed)
	}
	party := loaded.Party()
	if len(party) != 1 {
		t.Fatalf("Expected 1 party member, got %d", len(party))
	}
	lh := loaded.Entities.Get(party[0])
	if lh == nil || lh.Name != "Hero" || lh.Pos != (domain.Position{X: 4, Y: 3}) {
		t.Fatalf("Expected Hero at (4,3), got %+v", lh)
	}
	if !lh.IsParty() {
		t.Error("Expected restored hero handle of kind PARTY")
	}

	// 2. Зона: клетки, пропы, разведка
	a := loaded.Area()
	if a.EntityAt(4, 3) != lh.ID {
		t.Error("Expected hero in restored cell index")
	}
	gid := a.EntityAt(10, 6)
	if lg := loaded.Entities.Get(gid); lg == nil || lg.DefID != "goblin" {
		t.Errorf("Expected goblin at (10,6), got %+v", lg)
	}
	h2 := a.PropIndexAt(5, 3)
	if h2 == grid.None || !a.Prop(h2).Open {
		t.Error("Expected crate restored open")
	}
	if !a.IsExplored(4, 3) {
		t.Error("Expected explored map restored")
	}

	// 3. Эффект в прежнем слоте, только его анимация
	eff := loaded.Effects.Get(slot)
	if eff == nil || eff.Rounds != 3 || eff.Owner != lh.ID {
		t.Fatalf("Expected burn effect with 3 rounds on hero, got %+v", eff)
	}
	if eff.Callback == nil {
		t.Error("Expected effect callback resolved on load")
	}
	if loaded.Anims.Len() != 1 {
		t.Errorf("Expected only the effect animation restored, got %d", loaded.Anims.Len())
	}
	if !loaded.Anims.HasBlocking(lh.ID) {
		t.Error("Expected restored wait to block the hero")
	}

	// Снятие эффекта снимает и восстановленную анимацию
	loaded.RemoveEffect(slot)
	if loaded.Anims.HasBlocking(lh.ID) {
		t.Error("Expected restored animation to share the effect flag")
	}
}

func TestLoadFailureKeepsSession(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	s := newTestSession(t, testConfig(), nil)
	h := hero(t, s)

	if err := s.Load(store, filepath.Join(t.TempDir(), "missing.tsav")); err == nil {
		t.Fatal("Expected error for missing save")
	}
	if s.Entities.Get(h.ID) != h || s.Area().ID != "start" {
		t.Error("Expected session untouched after failed load")
	}
}

func TestSaveKeepsFallenMember(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	cfg := testConfig()
	cfg.Party = []string{"hero", "hero"}
	s := newTestSession(t, cfg, nil)
	first := s.Entities.Get(s.Party()[0])
	mustSpawn(t, s, "goblin", 4, 1)

	s.Turns.StartCombat(s.Area())
	first.Stats.TakeDamage(100)
	runTicks(s, 1)
	if len(s.fallen) != 1 {
		t.Fatalf("Expected 1 fallen member, got %d", len(s.fallen))
	}

	path, err := s.Save(store)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded := NewSession(cfg, testModule(t), nil)
	if err := loaded.Load(store, path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Party()) != 2 {
		t.Fatalf("Expected 2 party members after load, got %d", len(loaded.Party()))
	}
	if len(loaded.fallen) != 1 {
		t.Fatalf("Expected 1 fallen member after load, got %d", len(loaded.fallen))
	}
	f := loaded.fallen[0]
	if loaded.Area().Contains(f.ID) {
		t.Error("Expected fallen member to stay off the field")
	}
	if f.Marker == grid.None || loaded.Area().Prop(f.Marker) == nil {
		t.Error("Expected death marker to survive the save")
	}
	if !loaded.Turns.InCombat() {
		t.Error("Expected combat recomputed on load")
	}
}
