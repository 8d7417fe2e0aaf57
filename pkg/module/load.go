package module

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"tactics-sim/pkg/logger"
)

// Module - загруженный набор определений. После Load не мутируется.
type Module struct {
	Dir        string
	Actors     map[string]*ActorDef
	Props      map[string]*PropDef
	Items      map[string]*ItemDef
	Encounters map[string]*EncounterDef
	Areas      map[string]*AreaDef
}

func New() *Module {
	return &Module{
		Actors:     make(map[string]*ActorDef),
		Props:      make(map[string]*PropDef),
		Items:      make(map[string]*ItemDef),
		Encounters: make(map[string]*EncounterDef),
		Areas:      make(map[string]*AreaDef),
	}
}

type actorsFile struct {
	Actors []*ActorDef `yaml:"actors"`
}

type propsFile struct {
	Props []*PropDef `yaml:"props"`
}

type itemsFile struct {
	Items []*ItemDef `yaml:"items"`
}

type encountersFile struct {
	Encounters []*EncounterDef `yaml:"encounters"`
}

// LoadSpec читает и разбирает один YAML-файл.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := os.ReadFile(filename)
	if err != nil {
		return zero, fmt.Errorf("module: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("module: unmarshal %s: %w", filename, err)
	}
	return spec, nil
}

// Load читает каталог модуля. Отсутствующий файл каталога - не ошибка,
// битый YAML и некорректная зона - ошибка.
func Load(dir string) (*Module, error) {
	m := New()
	m.Dir = dir

	// 1. Плоские списки определений
	actors, err := loadOptional[actorsFile](filepath.Join(dir, "actors.yaml"))
	if err != nil {
		return nil, err
	}
	for _, d := range actors.Actors {
		m.Actors[d.ID] = d
	}
	props, err := loadOptional[propsFile](filepath.Join(dir, "props.yaml"))
	if err != nil {
		return nil, err
	}
	for _, d := range props.Props {
		m.Props[d.ID] = d
	}
	items, err := loadOptional[itemsFile](filepath.Join(dir, "items.yaml"))
	if err != nil {
		return nil, err
	}
	for _, d := range items.Items {
		m.Items[d.ID] = d
	}
	encs, err := loadOptional[encountersFile](filepath.Join(dir, "encounters.yaml"))
	if err != nil {
		return nil, err
	}
	for _, d := range encs.Encounters {
		m.Encounters[d.ID] = d
	}

	// 2. Зоны: по файлу на зону
	areaFiles, err := filepath.Glob(filepath.Join(dir, "areas", "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(areaFiles)
	for _, path := range areaFiles {
		def, err := LoadSpec[AreaDef](path)
		if err != nil {
			return nil, err
		}
		if def.ID == "" {
			def.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		area := def
		if err := m.AddArea(&area); err != nil {
			return nil, fmt.Errorf("module: %s: %w", path, err)
		}
	}

	m.Validate()

	logger.Log.WithFields(logrus.Fields{
		"component":  "module",
		"dir":        dir,
		"actors":     len(m.Actors),
		"props":      len(m.Props),
		"items":      len(m.Items),
		"encounters": len(m.Encounters),
		"areas":      len(m.Areas),
	}).Info("Module loaded")

	return m, nil
}

func loadOptional[T any](path string) (T, error) {
	var zero T
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return zero, nil
	}
	return LoadSpec[T](path)
}

// AddArea финализирует и регистрирует зону (используется генератором).
func (m *Module) AddArea(def *AreaDef) error {
	if err := def.Finalize(); err != nil {
		return err
	}
	m.Areas[def.ID] = def
	return nil
}

// Validate пишет предупреждения о ссылках на несуществующие определения.
// Такие записи ядро позже просто пропустит.
func (m *Module) Validate() int {
	log := logger.Log.WithField("component", "module")
	missing := 0
	warn := func(area, kind, id string) {
		missing++
		log.WithFields(logrus.Fields{"area_id": area, "kind": kind, "ref": id}).Warn("Missing referenced definition")
	}

	for _, enc := range m.Encounters {
		for _, e := range enc.Entries {
			if _, ok := m.Actors[e.Actor]; !ok {
				warn("", "actor", e.Actor)
			}
		}
	}
	for _, p := range m.Props {
		for _, it := range p.Items {
			if _, ok := m.Items[it.ID]; !ok {
				warn("", "item", it.ID)
			}
		}
	}
	for _, a := range m.Areas {
		for _, p := range a.Props {
			if _, ok := m.Props[p.ID]; !ok {
				warn(a.ID, "prop", p.ID)
			}
		}
		for _, e := range a.Encounters {
			if _, ok := m.Encounters[e.ID]; !ok {
				warn(a.ID, "encounter", e.ID)
			}
		}
		for _, act := range a.Actors {
			if _, ok := m.Actors[act.ID]; !ok {
				warn(a.ID, "actor", act.ID)
			}
		}
		for _, mer := range a.Merchants {
			for _, it := range mer.Items {
				if _, ok := m.Items[it.ID]; !ok {
					warn(a.ID, "item", it.ID)
				}
			}
		}
		for _, t := range a.Transitions {
			if _, ok := m.Areas[t.ToArea]; !ok {
				warn(a.ID, "area", t.ToArea)
			}
		}
	}
	return missing
}

func (m *Module) Actor(id string) (*ActorDef, bool) {
	d, ok := m.Actors[id]
	return d, ok
}

func (m *Module) Prop(id string) (*PropDef, bool) {
	d, ok := m.Props[id]
	return d, ok
}

func (m *Module) Item(id string) (*ItemDef, bool) {
	d, ok := m.Items[id]
	return d, ok
}

func (m *Module) Encounter(id string) (*EncounterDef, bool) {
	d, ok := m.Encounters[id]
	return d, ok
}

func (m *Module) Area(id string) (*AreaDef, bool) {
	d, ok := m.Areas[id]
	return d, ok
}
