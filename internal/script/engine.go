package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/sirupsen/logrus"

	"tactics-sim/internal/anim"
	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

// Ext - расширение файлов скриптов.
const Ext = ".tengo"

// Скрипт объявляет map hooks: имя хука -> func(engine, ctx).
const hookDispatchScript = `
__fn := hooks[__hook]
if is_callable(__fn) {
	__fn(__engine, __ctx)
}
`

// Host - то, что скрипты могут делать с миром.
type Host interface {
	Feedback(areaID string, owner domain.EntityID, text string)
	// Animate ставит анимацию. false - владельца нет.
	Animate(t *anim.Task) bool
	// ApplyOwnerEffect вешает эффект на сущность; tasks разделяют его флаг снятия.
	ApplyOwnerEffect(owner domain.EntityID, name, script string, rounds int, tasks ...*anim.Task) (int, error)
	RemoveEffect(slot int) bool
	TogglePropAt(areaID string, pos domain.Position) bool
	SetTriggerEnabled(index int, enabled bool) error
}

// Engine компилирует скрипты модуля и выдаёт их как колбэки.
type Engine struct {
	dir  string
	host Host

	mu       sync.Mutex
	compiled map[string]*tengo.Compiled
	failed   map[string]bool
	log      *logrus.Entry
}

func New(dir string) *Engine {
	return &Engine{
		dir:      dir,
		compiled: make(map[string]*tengo.Compiled),
		failed:   make(map[string]bool),
		log:      logger.For("script"),
	}
}

// SetHost подключает мир. Без хоста feedback только пишет в лог.
func (e *Engine) SetHost(h Host) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.host = h
}

// Callback возвращает колбэк скрипта name. Если скрипт не компилируется,
// возвращается nil (интерфейс, а не типизированный nil).
func (e *Engine) Callback(name string) domain.Callback {
	if _, err := e.load(name); err != nil {
		return nil
	}
	return &callback{engine: e, name: name}
}

// Resolve - Callback для восстановления из сохранения.
func (e *Engine) Resolve(ref string) domain.Callback {
	return e.Callback(ref)
}

// Invalidate сбрасывает кэш скрипта (горячая перезагрузка).
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.compiled, name)
	delete(e.failed, name)
	e.log.WithField("script", name).Info("Script invalidated")
}

// NameFromPath - имя скрипта по пути файла.
func NameFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}

func (e *Engine) load(name string) (*tengo.Compiled, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.compiled[name]; ok {
		return c, nil
	}
	if e.failed[name] {
		return nil, fmt.Errorf("script %s failed to compile earlier", name)
	}

	c, err := e.compile(name)
	if err != nil {
		e.failed[name] = true
		e.log.WithError(err).WithField("script", name).Warn("Script not loaded")
		return nil, err
	}
	e.compiled[name] = c
	return c, nil
}

func (e *Engine) compile(name string) (*tengo.Compiled, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid script name %q", name)
	}
	src, err := os.ReadFile(filepath.Join(e.dir, name+Ext))
	if err != nil {
		return nil, err
	}

	s := tengo.NewScript([]byte(string(src) + "\n" + hookDispatchScript))
	for _, v := range []struct {
		name  string
		value any
	}{
		{"__hook", ""},
		{"__engine", map[string]any{}},
		{"__ctx", map[string]any{}},
	} {
		if err := s.Add(v.name, v.value); err != nil {
			return nil, fmt.Errorf("compile %s: add %s: %w", name, v.name, err)
		}
	}
	s.SetImports(stdlib.GetModuleMap("fmt", "math", "text", "rand"))

	c, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return c, nil
}

// invoke исполняет хук на копии скомпилированного скрипта. Ошибки
// скрипта логируются и дальше не идут.
func (e *Engine) invoke(name string, hook domain.Hook, ctx domain.CallbackContext) {
	base, err := e.load(name)
	if err != nil {
		return
	}
	c := base.Clone()

	log := e.log.WithFields(logrus.Fields{"script": name, "hook": hook.String()})
	if err := c.Set("__hook", hook.String()); err != nil {
		log.WithError(err).Warn("Script set failed")
		return
	}
	if err := c.Set("__engine", e.api(name, ctx)); err != nil {
		log.WithError(err).Warn("Script set failed")
		return
	}
	if err := c.Set("__ctx", contextMap(hook, ctx)); err != nil {
		log.WithError(err).Warn("Script set failed")
		return
	}
	if err := c.Run(); err != nil {
		log.WithError(err).Warn("Script error")
	}
}

func (e *Engine) currentHost() Host {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.host
}

// api - объект engine внутри скрипта. Анимации и эффекты вешаются на
// владельца колбэка; без хоста доступны только log и feedback.
func (e *Engine) api(name string, ctx domain.CallbackContext) *tengo.ImmutableMap {
	log := e.log.WithField("script", name)
	values := map[string]tengo.Object{}
	fn := func(fname string, f tengo.CallableFunc) {
		values[fname] = &tengo.UserFunction{Name: fname, Value: f}
	}

	fn("log", func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		log.Info(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	})

	fn("feedback", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		text := strings.TrimSpace(objectAsString(args[0]))
		if text == "" {
			return tengo.FalseValue, nil
		}
		host := e.currentHost()
		if host == nil {
			log.Info(text)
			return tengo.TrueValue, nil
		}
		host.Feedback(ctx.AreaID, ctx.Owner, text)
		return tengo.TrueValue, nil
	})

	// animate ставит задачу владельцу, если он есть.
	animate := func(build func() (*anim.Task, bool)) (tengo.Object, error) {
		host := e.currentHost()
		if host == nil || ctx.Owner.IsNil() {
			return tengo.FalseValue, nil
		}
		t, ok := build()
		if !ok {
			log.Warn("Bad animation arguments")
			return tengo.FalseValue, nil
		}
		return boolObject(host.Animate(t)), nil
	}

	// tint(color, ms)
	fn("tint", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			c, ok1 := argColor(args, 0)
			ms, ok2 := argMillis(args, 1)
			return anim.NewEntityColor(ctx.Owner, c, domain.Color{}, anim.Millis(ms)), ok1 && ok2
		})
	})
	// scale(from, to, ms)
	fn("scale", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			from, ok1 := argFloat(args, 0)
			to, ok2 := argFloat(args, 1)
			ms, ok3 := argMillis(args, 2)
			return anim.NewEntityScale(ctx.Owner, from, to, anim.Millis(ms)), ok1 && ok2 && ok3
		})
	})
	// shake(x, y, ms) - смещение внутри клетки, блокирует владельца.
	fn("shake", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			x, ok1 := argFloat(args, 0)
			y, ok2 := argFloat(args, 1)
			ms, ok3 := argMillis(args, 2)
			return anim.NewEntitySubpos(ctx.Owner, x, y, anim.Millis(ms)), ok1 && ok2 && ok3
		})
	})
	// overlay(layer, image, ms)
	fn("overlay", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			layer, ok1 := argString(args, 0)
			image, ok2 := argString(args, 1)
			ms, ok3 := argMillis(args, 2)
			return anim.NewEntityImageLayer(ctx.Owner, map[string]string{layer: image}, anim.Millis(ms)), ok1 && ok2 && ok3
		})
	})
	// particles(image, rate, ms, above)
	fn("particles", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			image, ok1 := argString(args, 0)
			rate, ok2 := argFloat(args, 1)
			ms, ok3 := argMillis(args, 2)
			above := len(args) > 3 && !args[3].IsFalsy()
			return anim.NewParticleGenerator(ctx.Owner, ctx.AreaID, image, domain.Position{}, rate, above, anim.Millis(ms)), ok1 && ok2 && ok3
		})
	})
	// pause(ms) - владелец не действует ms.
	fn("pause", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			ms, ok := argMillis(args, 0)
			return anim.NewWait(ctx.Owner, ms), ok
		})
	})
	// delay(ms) - через ms скрипт получит on_anim_complete.
	fn("delay", func(args ...tengo.Object) (tengo.Object, error) {
		return animate(func() (*anim.Task, bool) {
			ms, ok := argMillis(args, 0)
			t := anim.NewNonBlockingWait(ctx.Owner, anim.Millis(ms)).WithCompletion(&callback{engine: e, name: name})
			return t, ok
		})
	})

	// apply_effect(name, rounds[, script[, color]]) - цвет держится, пока жив эффект.
	fn("apply_effect", func(args ...tengo.Object) (tengo.Object, error) {
		host := e.currentHost()
		if host == nil || ctx.Owner.IsNil() {
			return tengo.FalseValue, nil
		}
		effName, ok1 := argString(args, 0)
		rounds, ok2 := argInt(args, 1)
		if !ok1 || !ok2 || rounds < 0 {
			log.Warn("Bad apply_effect arguments")
			return tengo.FalseValue, nil
		}
		var effScript string
		if len(args) > 2 {
			effScript, _ = argString(args, 2)
		}
		var tasks []*anim.Task
		if c, ok := argColor(args, 3); ok {
			tasks = append(tasks, anim.NewEntityColor(ctx.Owner, c, domain.Color{}, anim.Forever))
		}
		slot, err := host.ApplyOwnerEffect(ctx.Owner, effName, effScript, rounds, tasks...)
		if err != nil {
			log.WithError(err).Warn("Effect not applied")
			return tengo.FalseValue, nil
		}
		return &tengo.Int{Value: int64(slot)}, nil
	})
	fn("remove_effect", func(args ...tengo.Object) (tengo.Object, error) {
		host := e.currentHost()
		slot, ok := argInt(args, 0)
		if host == nil || !ok {
			return tengo.FalseValue, nil
		}
		return boolObject(host.RemoveEffect(slot)), nil
	})

	// toggle_prop(x, y) - дверь или контейнер в зоне колбэка.
	fn("toggle_prop", func(args ...tengo.Object) (tengo.Object, error) {
		host := e.currentHost()
		x, ok1 := argInt(args, 0)
		y, ok2 := argInt(args, 1)
		if host == nil || !ok1 || !ok2 {
			return tengo.FalseValue, nil
		}
		return boolObject(host.TogglePropAt(ctx.AreaID, domain.Position{X: x, Y: y})), nil
	})
	// set_trigger(index, enabled)
	fn("set_trigger", func(args ...tengo.Object) (tengo.Object, error) {
		host := e.currentHost()
		idx, ok := argInt(args, 0)
		if host == nil || !ok || len(args) < 2 {
			return tengo.FalseValue, nil
		}
		if err := host.SetTriggerEnabled(idx, !args[1].IsFalsy()); err != nil {
			log.WithError(err).Warn("Trigger not changed")
			return tengo.FalseValue, nil
		}
		return tengo.TrueValue, nil
	})

	return &tengo.ImmutableMap{Value: values}
}

func contextMap(hook domain.Hook, ctx domain.CallbackContext) map[string]any {
	return map[string]any{
		"hook":    hook.String(),
		"area":    ctx.AreaID,
		"owner":   int64(ctx.Owner),
		"target":  int64(ctx.Target),
		"surface": int64(ctx.Surface),
		"trigger": int64(ctx.Trigger),
		"squares": int64(ctx.Squares),
		"millis":  int64(ctx.Millis),
		"damage":  int64(ctx.Damage),
		"killed":  ctx.Killed,
	}
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func argInt(args []tengo.Object, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return tengo.ToInt(args[i])
}

func argFloat(args []tengo.Object, i int) (float32, bool) {
	if i >= len(args) {
		return 0, false
	}
	f, ok := tengo.ToFloat64(args[i])
	return float32(f), ok
}

func argString(args []tengo.Object, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(*tengo.String)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// argMillis - положительная длительность в мс.
func argMillis(args []tengo.Object, i int) (uint32, bool) {
	ms, ok := argInt(args, i)
	if !ok || ms <= 0 {
		return 0, false
	}
	return uint32(ms), true
}

// argColor разбирает [r, g, b] или [r, g, b, a] в диапазоне [0, 1].
func argColor(args []tengo.Object, i int) (domain.Color, bool) {
	if i >= len(args) {
		return domain.Color{}, false
	}
	var items []tengo.Object
	switch arr := args[i].(type) {
	case *tengo.Array:
		items = arr.Value
	case *tengo.ImmutableArray:
		items = arr.Value
	default:
		return domain.Color{}, false
	}
	if len(items) != 3 && len(items) != 4 {
		return domain.Color{}, false
	}
	c := domain.Color{1, 1, 1, 1}
	for k, it := range items {
		f, ok := tengo.ToFloat64(it)
		if !ok {
			return domain.Color{}, false
		}
		c[k] = float32(f)
	}
	return c, true
}

func objectAsString(o tengo.Object) string {
	if s, ok := tengo.ToString(o); ok {
		return s
	}
	return o.String()
}

// callback - колбэк скрипта. Переживает сохранение по имени.
type callback struct {
	engine *Engine
	name   string
}

func (c *callback) Invoke(hook domain.Hook, ctx domain.CallbackContext) {
	c.engine.invoke(c.name, hook, ctx)
}

func (c *callback) Ref() string {
	return c.name
}
