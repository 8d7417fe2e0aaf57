package server

import (
	"encoding/json"
	"net/http"
	_ "net/http/pprof" // Profiling

	"tactics-sim/internal/engine"
	"tactics-sim/internal/infrastructure/storage"
	"tactics-sim/internal/network"
	"tactics-sim/internal/version"
	"tactics-sim/pkg/logger"
)

type Server struct {
	Session *engine.Session
	Hub     *network.Broadcaster
	Store   *storage.Store
	Port    string
}

func New(sess *engine.Session, hub *network.Broadcaster, store *storage.Store, port string) *Server {
	return &Server{
		Session: sess,
		Hub:     hub,
		Store:   store,
		Port:    port,
	}
}

// Handler собирает роутинг сервера.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// pprof регистрируется в DefaultServeMux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	debugHandler := NewDebugHandler(s.Session, s.Store)
	debugHandler.RegisterRoutes(mux)
	return mux
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	handler := s.Handler()
	logger.Log.Infof("Tactics sim debug server running on :%s", s.Port)
	return http.ListenAndServe(":"+s.Port, handler)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS подписывает подключение на кадры симуляции
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Upgrade error")
		return
	}

	client := NewClient(s.Session, s.Hub, conn)

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
