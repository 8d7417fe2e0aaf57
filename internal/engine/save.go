package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/area"
	"tactics-sim/internal/domain"
	"tactics-sim/internal/infrastructure/storage"
	"tactics-sim/internal/version"
	"tactics-sim/pkg/api"
)

// savedSession - блок сессии в сохранении. Сущности адресуются
// индексами внутри сохранения, хэндлы после загрузки новые.
type savedSession struct {
	Current string         `json:"current"`
	Party   []int          `json:"party"`
	Elapsed uint64         `json:"elapsed"`
	Seed    int64          `json:"seed"`
	Fallen  []savedFallen  `json:"fallen,omitempty"`
	Logs    []api.LogEntry `json:"logs,omitempty"`
}

type savedFallen struct {
	Actor  savedActor      `json:"actor"`
	AreaID string          `json:"areaId"`
	Pos    domain.Position `json:"pos"`
	Marker int             `json:"marker"`
}

type savedActor struct {
	Index  int               `json:"index"`
	Kind   domain.EntityKind `json:"kind"`
	Entity *domain.Entity    `json:"entity"`
}

// savedArea - JSON-тело секции зоны.
type savedArea struct {
	Area    area.Snapshot       `json:"area"`
	Actors  []savedActor        `json:"actors"`
	Effects []EffectSnapshot    `json:"effects,omitempty"`
	Anims   []anim.TaskSnapshot `json:"anims,omitempty"`
}

// Save пишет состояние сессии в каталог сохранений.
func (s *Session) Save(store *storage.Store) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.snapshot()
	if err != nil {
		return "", err
	}
	return store.Save(f)
}

func (s *Session) snapshot() (*storage.SaveFile, error) {
	// 1. Индексы сущностей: зоны по порядку, затем павшие
	index := make(map[domain.EntityID]int)
	areaOf := make(map[int]string)
	ids := s.sortedAreaIDs()
	for _, aid := range ids {
		for _, id := range s.areas[aid].Entities() {
			index[id] = len(index)
			areaOf[index[id]] = aid
		}
	}
	for _, f := range s.fallen {
		index[f.ID] = len(index)
		areaOf[index[f.ID]] = f.AreaID
	}
	indexOf := func(id domain.EntityID) (int, bool) {
		i, ok := index[id]
		return i, ok
	}

	sess := savedSession{
		Current: s.current,
		Elapsed: s.elapsed,
		Seed:    s.Config.Seed,
		Logs:    s.Logs,
	}
	for _, id := range s.party {
		if i, ok := index[id]; ok {
			sess.Party = append(sess.Party, i)
		}
	}
	for _, f := range s.fallen {
		e := s.Entities.Get(f.ID)
		if e == nil {
			continue
		}
		sess.Fallen = append(sess.Fallen, savedFallen{
			Actor:  savedActor{Index: index[f.ID], Kind: f.ID.Kind(), Entity: e},
			AreaID: f.AreaID,
			Pos:    f.Pos,
			Marker: f.Marker,
		})
	}

	// 2. Зоны: эффекты по своей зоне, анимации по зоне владельца
	bodies := make(map[string]*savedArea, len(ids))
	for _, aid := range ids {
		a := s.areas[aid]
		body := &savedArea{Area: a.Snapshot()}
		for _, id := range a.Entities() {
			if e := s.Entities.Get(id); e != nil {
				body.Actors = append(body.Actors, savedActor{Index: index[id], Kind: id.Kind(), Entity: e})
			}
		}
		bodies[aid] = body
	}
	for _, es := range s.Effects.snapshot(indexOf) {
		if body := bodies[es.AreaID]; body != nil {
			body.Effects = append(body.Effects, es)
		}
	}
	for _, ts := range s.Anims.Snapshot(indexOf) {
		if body := bodies[areaOf[ts.Owner]]; body != nil {
			body.Anims = append(body.Anims, ts)
		}
	}

	// 3. Сборка файла
	sessBytes, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("save: session: %w", err)
	}
	buildID, _ := version.CalculateBuildID()
	f := &storage.SaveFile{BuildID: buildID, Session: sessBytes}
	for _, aid := range ids {
		body := bodies[aid]
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("save: area %s: %w", aid, err)
		}
		f.Areas = append(f.Areas, storage.AreaSection{ID: aid, Explored: body.Area.Explored, Body: data})
	}
	return f, nil
}

// Load заменяет состояние сессии сохранением. При ошибке сессия
// остаётся прежней.
func (s *Session) Load(store *storage.Store, path string) error {
	f, err := store.Load(path)
	if err != nil {
		return err
	}
	if !version.SaveCompatible(f.BuildID) {
		s.log.WithFields(logrus.Fields{"path": path, "build_id": f.BuildID}).Warn("Save written by a newer build")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restore(f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"save_id":  f.SaveID.String(),
		"build_id": f.BuildID,
		"area_id":  s.current,
	}).Info("Save loaded")
	return nil
}

func (s *Session) restore(f *storage.SaveFile) error {
	var sess savedSession
	if err := json.Unmarshal(f.Session, &sess); err != nil {
		return fmt.Errorf("load: session: %w", err)
	}

	// 1. Новый реестр, учёт ходов и окружение зон
	reg := domain.NewRegistry()
	turns := NewTurnManager(reg, s.Config.ElevationTolerance, s.Config.RoundMillis)
	turns.OnCombatChanged = s.onCombatChanged
	turns.Reset(sess.Current)
	env := *s.env
	env.Entities = reg
	env.Hooks = turns
	env.Rand = rand.New(rand.NewSource(sess.Seed + int64(sess.Elapsed)))

	handles := make(map[int]domain.EntityID)
	insert := func(sa savedActor) (*domain.Entity, error) {
		if sa.Entity == nil {
			return nil, fmt.Errorf("load: actor %d has no body", sa.Index)
		}
		if _, dup := handles[sa.Index]; dup {
			return nil, fmt.Errorf("load: duplicate actor index %d", sa.Index)
		}
		e := sa.Entity
		e.Visual = domain.DefaultVisual()
		reg.Insert(sa.Kind, e)
		if env.Scripts != nil {
			if def, ok := env.Module.Actor(e.DefID); ok && def.Script != "" {
				if cb := env.Scripts.Callback(def.Script); cb != nil {
					e.Callbacks = append(e.Callbacks, cb)
				}
			}
		}
		handles[sa.Index] = e.ID
		return e, nil
	}

	// 2. Зоны и их акторы
	areas := make(map[string]*area.State, len(f.Areas))
	bodies := make(map[string]*savedArea, len(f.Areas))
	for _, sec := range f.Areas {
		def, ok := env.Module.Area(sec.ID)
		if !ok {
			return fmt.Errorf("load: %w: %s", ErrUnknownArea, sec.ID)
		}
		body := &savedArea{}
		if err := json.Unmarshal(sec.Body, body); err != nil {
			return fmt.Errorf("load: area %s: %w", sec.ID, err)
		}
		body.Area.Explored = sec.Explored
		a, err := area.Restore(def, &body.Area, &env)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		for _, sa := range body.Actors {
			e, err := insert(sa)
			if err != nil {
				return err
			}
			a.PlaceEntity(e)
		}
		areas[sec.ID] = a
		bodies[sec.ID] = body
	}
	if _, ok := areas[sess.Current]; !ok {
		return fmt.Errorf("load: %w: current area %s not in save", ErrUnknownArea, sess.Current)
	}

	var fallen []fallenMember
	for _, sf := range sess.Fallen {
		e, err := insert(sf.Actor)
		if err != nil {
			return err
		}
		e.AreaID = sf.AreaID
		fallen = append(fallen, fallenMember{ID: e.ID, AreaID: sf.AreaID, Pos: sf.Pos, Marker: sf.Marker})
	}

	var party []domain.EntityID
	for _, i := range sess.Party {
		if id, ok := handles[i]; ok {
			party = append(party, id)
		}
	}

	// 3. Подмена состояния сессии
	s.Entities = reg
	s.Turns = turns
	s.env = &env
	s.rng = env.Rand
	s.areas = areas
	s.current = sess.Current
	s.party = party
	s.fallen = fallen
	s.elapsed = sess.Elapsed
	s.Logs = append([]api.LogEntry{}, sess.Logs...)
	s.dying = make(map[domain.EntityID]bool)
	s.combatEnded = false
	s.Effects = &Effects{}
	s.Anims = anim.NewScheduler(s)

	// 4. Эффекты в прежние слоты, затем их анимации
	for _, aid := range s.sortedAreaIDs() {
		for _, es := range bodies[aid].Effects {
			s.restoreEffect(es, handles)
		}
	}
	resolve := func(ref string) domain.Callback {
		if s.scripts == nil {
			return nil
		}
		return s.scripts.Resolve(ref)
	}
	for _, aid := range s.sortedAreaIDs() {
		for _, ts := range bodies[aid].Anims {
			owner, ok := handles[ts.Owner]
			if !ok {
				continue
			}
			t, err := anim.RestoreTask(ts, owner, resolve)
			if err != nil {
				s.log.WithError(err).Warn("Saved animation skipped")
				continue
			}
			if eff := s.Effects.Get(ts.Effect); eff != nil {
				t.WithFlag(eff.flag)
			}
			s.Anims.Queue(t)
		}
	}

	// Уведомления о входе на пересозданные поверхности не повторяются
	for _, a := range s.areas {
		a.DrainPending()
	}

	// 5. Бой пересчитывается по текущей расстановке
	a := s.areas[s.current]
	s.syncTurns(a)
	for _, id := range s.party {
		if a.Contains(id) {
			s.Turns.CheckActivation(a, id)
		}
	}
	return nil
}

// restoreEffect ставит эффект в сохранённый слот и пересоздаёт поверхность.
func (s *Session) restoreEffect(es EffectSnapshot, handles map[int]domain.EntityID) {
	owner, ok := handles[es.Owner]
	a := s.areas[es.AreaID]
	if !ok || a == nil || es.Slot < 0 {
		s.log.WithFields(logrus.Fields{"effect": es.Name, "slot": es.Slot}).Warn("Saved effect skipped")
		return
	}
	eff := &Effect{
		Name:           es.Name,
		Owner:          owner,
		AreaID:         es.AreaID,
		Script:         es.Script,
		Rounds:         es.Rounds,
		Surface:        -1,
		surfacePoints:  es.Surface,
		surfaceSquares: es.Squares,
		flag:           &anim.RemovalFlag{},
	}
	if es.Script != "" && s.scripts != nil {
		eff.Callback = s.scripts.Callback(es.Script)
	}
	for len(s.Effects.slots) <= es.Slot {
		s.Effects.slots = append(s.Effects.slots, nil)
	}
	s.Effects.slots[es.Slot] = eff
	s.attachEffect(a, es.Slot, eff, nil)
}
