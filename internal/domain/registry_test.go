package domain

import "testing"

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry()

	e := &Entity{Name: "goblin", Pos: Position{X: 5, Y: 5}}
	id := r.Insert(KindActor, e)

	if id.IsNil() {
		t.Fatal("Insert returned nil handle")
	}
	if e.ID != id {
		t.Errorf("Expected entity ID %v, got %v", id, e.ID)
	}
	if got := r.Get(id); got != e {
		t.Errorf("Get returned wrong entity: got %v want %v", got, e)
	}
	if r.Len() != 1 {
		t.Errorf("Expected length 1, got %d", r.Len())
	}

	if !r.Remove(id) {
		t.Fatal("Remove should succeed for a live handle")
	}
	if r.Get(id) != nil {
		t.Error("Entity should be nil after removal")
	}
	if r.Remove(id) {
		t.Error("Second Remove should be a no-op")
	}
}

func TestRegistry_StaleHandleAfterReuse(t *testing.T) {
	r := NewRegistry()

	first := r.Insert(KindActor, &Entity{Name: "a"})
	r.Remove(first)

	second := r.Insert(KindParty, &Entity{Name: "b"})

	if first.Index() != second.Index() {
		t.Fatalf("Expected slot reuse, got indices %d and %d", first.Index(), second.Index())
	}
	if first.Generation() == second.Generation() {
		t.Error("Generation must change on slot reuse")
	}
	if r.Get(first) != nil {
		t.Error("Stale handle must not resolve to the new occupant")
	}
	if r.Get(second).Name != "b" {
		t.Error("Fresh handle must resolve")
	}
	if second.Kind() != KindParty {
		t.Errorf("Expected kind PARTY, got %v", second.Kind())
	}
}

func TestEntityID_Packing(t *testing.T) {
	tests := []struct {
		name  string
		kind  EntityKind
		gen   uint16
		index uint32
	}{
		{"zero index", KindActor, 1, 0},
		{"max index", KindParty, 7, maskIndex},
		{"max generation", KindActor, maskGen, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := PackEntityID(tt.kind, tt.gen, tt.index)
			if id.Kind() != tt.kind || id.Generation() != tt.gen || id.Index() != tt.index {
				t.Errorf("PackEntityID roundtrip mismatch: got (%v,%d,%d)", id.Kind(), id.Generation(), id.Index())
			}
		})
	}
}

func TestEntityID_JSON(t *testing.T) {
	id := PackEntityID(KindActor, 3, 9)
	data, err := id.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	var back EntityID
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Errorf("Expected %v, got %v", id, back)
	}

	if err := back.UnmarshalJSON([]byte("null")); err != nil || !back.IsNil() {
		t.Errorf("null must decode to NilEntityID, got %v (%v)", back, err)
	}
}

func TestParseHook(t *testing.T) {
	tests := []struct {
		input    string
		expected Hook
	}{
		{"on_anim_complete", HookAnimComplete},
		{"ON_MOVED", HookMoved},
		{"before_attack", HookBeforeAttack},
		{"on_tick", HookTick},
		{"something_else", HookUnknown},
		{"", HookUnknown},
	}

	for _, tt := range tests {
		if got := ParseHook(tt.input); got != tt.expected {
			t.Errorf("ParseHook(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestEntity_IsHostileTo(t *testing.T) {
	hero := &Entity{Faction: FactionFriendly}
	orc := &Entity{Faction: FactionHostile}
	cow := &Entity{Faction: FactionNeutral}

	if !hero.IsHostileTo(orc) || !orc.IsHostileTo(hero) {
		t.Error("Friendly and hostile must be enemies")
	}
	if orc.IsHostileTo(cow) || cow.IsHostileTo(orc) {
		t.Error("Neutral must not be anybody's enemy")
	}
	if orc.IsHostileTo(&Entity{Faction: FactionHostile}) {
		t.Error("Hostiles do not fight each other")
	}
}

func TestStatsComponent_DamageAndRevive(t *testing.T) {
	s := &StatsComponent{HP: 10, MaxHP: 10}

	if died := s.TakeDamage(4); died || s.HP != 6 {
		t.Errorf("Expected HP 6 alive, got %d dead=%v", s.HP, died)
	}
	if died := s.TakeDamage(100); !died || s.HP != 0 || !s.IsDead {
		t.Errorf("Expected death at 0 HP, got %d dead=%v", s.HP, s.IsDead)
	}

	s.Heal(5)
	if s.HP != 0 {
		t.Error("Heal must not affect the dead")
	}

	s.Revive(1)
	if s.IsDead || s.HP != 1 {
		t.Errorf("Expected revive at 1 HP, got %d dead=%v", s.HP, s.IsDead)
	}
}
