package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tactics-sim/internal/agent"
	"tactics-sim/internal/engine"
	"tactics-sim/internal/infrastructure/storage"
	"tactics-sim/internal/network"
	"tactics-sim/internal/script"
	"tactics-sim/internal/server"
	"tactics-sim/internal/version"
	"tactics-sim/pkg/dungeon"
	"tactics-sim/pkg/logger"
	"tactics-sim/pkg/module"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Флаги
	var configPath, loadPath string
	var seed int64
	var sandbox, autopilot bool
	flag.StringVar(&configPath, "config", "config.yaml", "Path to YAML config")
	flag.StringVar(&loadPath, "load", "", "Path to .tsav save to resume")
	flag.Int64Var(&seed, "seed", 0, "Session seed (0 for config/random)")
	flag.BoolVar(&sandbox, "sandbox", false, "Start in a generated area instead of start_area")
	flag.BoolVar(&autopilot, "autopilot", false, "Let agents play the party in combat")
	flag.Parse()

	logger.Log.Info("Starting tactics sim...")
	logger.Log.WithFields(version.Fields()).Info(version.String())

	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load config")
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	logger.Log.Infof("Using session seed: %d", cfg.Seed)

	// 2. Модуль и скрипты
	mod, err := module.Load(cfg.ModuleDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load module")
	}
	if sandbox {
		b := dungeon.NewArea("sandbox", rand.New(rand.NewSource(cfg.Seed))).
			WithRooms(dungeon.MaxRooms).
			WithPools(2)
		for id := range mod.Encounters {
			b.SpawnEncounter(id, 1)
		}
		def, err := b.Build()
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to generate sandbox area")
		}
		if err := mod.AddArea(def); err != nil {
			logger.Log.WithError(err).Fatal("Failed to register sandbox area")
		}
		cfg.StartArea = def.ID
	}

	scripts := script.New(cfg.ScriptDir)
	sess := engine.NewSession(cfg, mod, scripts)
	scripts.SetHost(sess)

	store := storage.NewStore(cfg.SaveDir)
	if loadPath != "" {
		if err := sess.Load(store, loadPath); err != nil {
			logger.Log.WithError(err).Fatal("Failed to load save")
		}
	} else if err := sess.Start(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to start session")
	}

	// 3. Горячая перезагрузка скриптов
	if cfg.WatchModule {
		watcher, err := module.NewWatcher(cfg.ModuleDir, cfg.ScriptDir)
		if err != nil {
			logger.Log.WithError(err).Warn("Module watcher disabled")
		} else {
			defer watcher.Close()
			go watchModule(watcher, scripts)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := network.NewBroadcaster()
	if autopilot {
		for _, id := range sess.Party() {
			bot := agent.NewBot(id.Token(), sess, hub.Register("agent_"+id.Token()))
			go bot.Run()
		}
	}

	go engine.NewRunner(sess, hub).Run(ctx)

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 4. Запуск сервера
	srv := server.New(sess, hub, store, cfg.Port)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.WithError(err).Fatal("Server start error")
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")
	cancel()

	if path, err := sess.Save(store); err != nil {
		logger.Log.WithError(err).Error("Final save failed")
	} else {
		logger.Log.WithField("path", path).Info("Session saved")
	}
	logger.Log.Info("Done.")
}

// watchModule сбрасывает кэш изменённых скриптов. YAML-определения
// применяются только при следующем запуске.
func watchModule(w *module.Watcher, scripts *script.Engine) {
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			if module.IsScriptFile(path) {
				scripts.Invalidate(script.NameFromPath(path))
				logger.Log.WithField("script", filepath.Base(path)).Info("Script reloaded")
				continue
			}
			logger.Log.WithField("file", filepath.Base(path)).Warn("Definition changed, restart to apply")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Log.WithError(err).Warn("Module watcher error")
		}
	}
}
