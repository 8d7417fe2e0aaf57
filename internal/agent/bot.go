package agent

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/api"
	"tactics-sim/pkg/logger"
)

// staleFrames - через сколько кадров без изменений бот считает команду
// отклонённой и завершает ход.
const staleFrames = 120

// Commander принимает команды так же, как от WebSocket-клиента.
type Commander interface {
	ProcessCommand(cmd api.ClientCommand)
}

// Bot - автопилот члена партии (Headless Agent). Получает те же кадры,
// что и клиент, и в свой ход отправляет те же команды.
//
// Жизненный цикл:
//  1. NewBot -> канал кадров от Broadcaster.
//  2. Run -> в отдельной горутине слушает Inbox.
//  3. Когда ActiveEntityID совпадает с EntityID, вызывается makeMove.
type Bot struct {
	EntityID string
	Out      Commander
	Inbox    <-chan *api.AreaView

	// последнее отправленное состояние: ждём, пока кадр его изменит
	lastKey   string
	waitCount int

	log *logrus.Entry
}

func NewBot(entityID string, out Commander, inbox <-chan *api.AreaView) *Bot {
	return &Bot{
		EntityID: entityID,
		Out:      out,
		Inbox:    inbox,
		log:      logger.For("agent").WithField("entity_id", entityID),
	}
}

// Run запускает цикл жизни бота. Должен быть запущен в горутине.
func (b *Bot) Run() {
	b.log.Info("Agent started")
	for view := range b.Inbox {
		b.HandleView(view)
	}
	b.log.Info("Agent shut down")
}

// HandleView реагирует на один кадр.
func (b *Bot) HandleView(view *api.AreaView) {
	if view == nil || !view.InCombat || view.ActiveEntityID != b.EntityID {
		b.lastKey = ""
		return
	}

	me, target := b.findActors(view)
	if me == nil || me.Stats == nil || me.Stats.IsDead || me.Busy {
		return
	}

	// 1. Ждём, пока предыдущая команда отразится в кадре
	key := stateKey(me)
	if key == b.lastKey {
		b.waitCount++
		if b.waitCount < staleFrames {
			return
		}
		b.log.Debug("Command had no effect, ending turn")
		b.sendWait()
		b.waitCount = 0
		return
	}
	b.lastKey = key
	b.waitCount = 0

	b.makeMove(me, target)
}

// makeMove - мозг бота: бить соседа или шагать к ближайшему врагу.
func (b *Bot) makeMove(me, target *api.EntityView) {
	if target == nil || me.Stats.AP < domain.APCostMove {
		b.sendWait()
		return
	}

	my := footprint(me)
	their := footprint(target)
	if my.GapTo(their) <= 1 {
		if me.Stats.AP >= domain.APCostAttack {
			b.sendCommand("ATTACK", api.EntityPayload{TargetID: target.ID})
			return
		}
		b.sendWait()
		return
	}

	from := domain.Position{X: me.Pos.X, Y: me.Pos.Y}
	dx, dy := from.DirectionTo(domain.Position{X: target.Pos.X, Y: target.Pos.Y})
	b.sendCommand("MOVE", api.DirectionPayload{Dx: dx, Dy: dy})
}

// findActors ищет в кадре себя и ближайшего живого врага.
func (b *Bot) findActors(view *api.AreaView) (me, target *api.EntityView) {
	for i := range view.Entities {
		if view.Entities[i].ID == b.EntityID {
			me = &view.Entities[i]
			break
		}
	}
	if me == nil {
		return nil, nil
	}

	best := -1
	for i := range view.Entities {
		ev := &view.Entities[i]
		if ev.Faction != domain.FactionHostile.String() || ev.Stats == nil || ev.Stats.IsDead {
			continue
		}
		gap := footprint(me).GapTo(footprint(ev))
		if best < 0 || gap < best {
			best = gap
			target = ev
		}
	}
	return me, target
}

func footprint(ev *api.EntityView) domain.Rect {
	return domain.FootprintOf(
		domain.Position{X: ev.Pos.X, Y: ev.Pos.Y},
		domain.Size{W: ev.Size.W, H: ev.Size.H},
	)
}

func stateKey(ev *api.EntityView) string {
	data, _ := json.Marshal([]int{ev.Pos.X, ev.Pos.Y, ev.Stats.AP, ev.Stats.HP})
	return string(data)
}

// --- Хелперы для отправки команд ---

func (b *Bot) sendCommand(action string, payload interface{}) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		b.log.WithError(err).Error("Error marshalling payload")
		return
	}
	b.Out.ProcessCommand(api.ClientCommand{
		Action:  action,
		Payload: payloadBytes,
		Token:   b.EntityID,
	})
}

func (b *Bot) sendWait() {
	b.Out.ProcessCommand(api.ClientCommand{Action: "WAIT", Token: b.EntityID})
}
