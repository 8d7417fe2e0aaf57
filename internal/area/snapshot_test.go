package area

import (
	"errors"
	"testing"

	"tactics-sim/internal/domain"
)

func TestSnapshotRestore(t *testing.T) {
	s := newTestArea(t, nil)
	door, _ := s.env.Module.Prop("door")
	crate, _ := s.env.Module.Prop("crate")

	hero := mustAddActor(t, s, "hero", 1, 2, true)
	gob := mustAddActor(t, s, "goblin", 6, 4, false)
	dh, _ := s.AddProp(door, domain.Position{X: 4, Y: 1}, true)
	ch, _ := s.AddProp(crate, domain.Position{X: 2, Y: 3}, true)
	s.ToggleProp(dh)
	s.SetTriggerEnabled(0, false)

	snap := s.Snapshot()

	r, err := Restore(s.Def, &snap, s.env)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	for _, id := range []domain.EntityID{hero, gob} {
		r.PlaceEntity(s.env.Entities.Get(id))
	}

	// Занятость и пропы совпадают клетка в клетку
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			if s.EntityAt(x, y) != r.EntityAt(x, y) {
				t.Errorf("Occupant mismatch at (%d,%d)", x, y)
			}
			if s.PropIndexAt(x, y) != r.PropIndexAt(x, y) {
				t.Errorf("Prop mismatch at (%d,%d)", x, y)
			}
			if s.Transparent(x, y) != r.Transparent(x, y) {
				t.Errorf("Transparency mismatch at (%d,%d)", x, y)
			}
			if s.IsExplored(x, y) != r.IsExplored(x, y) {
				t.Errorf("Explored mismatch at (%d,%d)", x, y)
			}
		}
	}
	if !r.Prop(dh).Open || r.Prop(ch).Items[0].Quantity != 5 {
		t.Error("Expected prop state restored")
	}
	if st, _ := r.Trigger(0); st.Enabled {
		t.Error("Expected trigger flags restored")
	}
	if m := r.Merchant("trader"); m == nil || len(m.Items) != 1 {
		t.Error("Expected merchant stock restored")
	}
}

func TestRestoreTriggerMismatch(t *testing.T) {
	s := newTestArea(t, nil)
	snap := s.Snapshot()
	snap.Triggers = append(snap.Triggers, TriggerState{})

	if _, err := Restore(s.Def, &snap, s.env); !errors.Is(err, ErrTriggerCountMismatch) {
		t.Errorf("Expected ErrTriggerCountMismatch, got %v", err)
	}
}
