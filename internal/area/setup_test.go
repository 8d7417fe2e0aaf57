package area

import (
	"math/rand"
	"os"
	"testing"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
	"tactics-sim/pkg/module"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// recorder запоминает хуки, с которыми его вызвали.
type recorder struct {
	hooks []domain.Hook
}

func (r *recorder) Invoke(hook domain.Hook, _ domain.CallbackContext) {
	r.hooks = append(r.hooks, hook)
}

type fakeScripts map[string]domain.Callback

func (f fakeScripts) Callback(name string) domain.Callback {
	return f[name]
}

func testModule(t *testing.T) *module.Module {
	t.Helper()
	m := module.New()
	m.Actors["hero"] = &module.ActorDef{ID: "hero", Name: "Hero", Faction: "friendly", HP: 20, Strength: 5, Vision: 5}
	m.Actors["goblin"] = &module.ActorDef{ID: "goblin", Name: "Goblin", Faction: "hostile", HP: 8, Strength: 3}
	m.Actors["ogre"] = &module.ActorDef{ID: "ogre", Name: "Ogre", Faction: "hostile", HP: 40, Size: domain.Size{W: 2, H: 2}}
	m.Props["door"] = &module.PropDef{ID: "door", Door: &module.DoorDef{
		ClosedImpass: []domain.Position{{X: 0, Y: 0}},
		ClosedInvis:  []domain.Position{{X: 0, Y: 0}},
	}}
	m.Props["crate"] = &module.PropDef{ID: "crate", Impassable: true, Container: true,
		Items: []domain.ItemStack{{ID: "coin", Quantity: 5}}}
	m.Items["coin"] = &module.ItemDef{ID: "coin", Name: "Coin"}
	m.Encounters["pack"] = &module.EncounterDef{ID: "pack", Entries: []module.EncounterEntry{{Actor: "goblin", Count: 2}}}

	def := &module.AreaDef{
		ID:     "field",
		Width:  8,
		Height: 6,
		Terrain: []string{
			"########",
			"#......#",
			"#......#",
			"#......#",
			"#......#",
			"########",
		},
		Triggers: []module.TriggerDef{{Kind: "on_player_enter", X: 5, Y: 2, W: 1, H: 1, Script: "alarm"}},
		Merchants: []module.MerchantDef{{ID: "trader", Items: []domain.ItemStack{
			{ID: "coin", Quantity: 3},
			{ID: "unknown_item", Quantity: 1},
		}}},
	}
	if err := m.AddArea(def); err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}
	return m
}

func testEnv(t *testing.T, scripts fakeScripts) *Env {
	return &Env{
		Module:             testModule(t),
		Entities:           domain.NewRegistry(),
		Rand:               rand.New(rand.NewSource(1)),
		Scripts:            scripts,
		ElevationTolerance: 1,
		FeedbackMillis:     1000,
	}
}

func newTestArea(t *testing.T, scripts fakeScripts) *State {
	t.Helper()
	env := testEnv(t, scripts)
	def, _ := env.Module.Area("field")
	s, err := New(def, env)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func mustAddActor(t *testing.T, s *State, id string, x, y int, party bool) domain.EntityID {
	t.Helper()
	def, _ := s.env.Module.Actor(id)
	eid, err := s.AddActor(def, domain.Position{X: x, Y: y}, ActorOptions{Party: party})
	if err != nil {
		t.Fatalf("AddActor(%s, %d, %d) failed: %v", id, x, y, err)
	}
	return eid
}

func hooksOf(pending []domain.Deferred, cb domain.Callback) []domain.Hook {
	var out []domain.Hook
	for _, d := range pending {
		if d.Callback == cb {
			out = append(out, d.Hook)
		}
	}
	return out
}
