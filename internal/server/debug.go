package server

import (
	"encoding/json"
	"net/http"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/engine"
	"tactics-sim/internal/infrastructure/storage"
)

// DebugHandler предоставляет доступ к внутреннему состоянию сессии
type DebugHandler struct {
	Session *engine.Session
	Store   *storage.Store
}

func NewDebugHandler(s *engine.Session, store *storage.Store) *DebugHandler {
	return &DebugHandler{Session: s, Store: store}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/turns", h.handleTurnQueue)
	mux.HandleFunc("/debug/entities", h.handleDumpEntities)
	mux.HandleFunc("/debug/view", h.handleView)
	mux.HandleFunc("/debug/save", h.handleSave)
}

// /debug/turns - очередь ходов текущей зоны
func (h *DebugHandler) handleTurnQueue(w http.ResponseWriter, r *http.Request) {
	h.Session.Lock()
	dump := h.Session.Turns.DebugDump()
	h.Session.Unlock()
	writeJSON(w, dump)
}

// /debug/entities - полные структуры сущностей текущей зоны (включая AI стейт)
func (h *DebugHandler) handleDumpEntities(w http.ResponseWriter, r *http.Request) {
	h.Session.Lock()
	defer h.Session.Unlock()

	a := h.Session.Area()
	if a == nil {
		http.Error(w, "No active area", http.StatusNotFound)
		return
	}
	var out []*domain.Entity
	for _, id := range a.Entities() {
		if e := h.Session.Entities.Get(id); e != nil {
			out = append(out, e)
		}
	}
	writeJSON(w, out)
}

// /debug/view - тот же кадр, что уходит в /ws
func (h *DebugHandler) handleView(w http.ResponseWriter, r *http.Request) {
	h.Session.Lock()
	view := h.Session.BuildView()
	h.Session.Unlock()
	if view == nil {
		http.Error(w, "No active area", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

// /debug/save (POST) - сохранить сессию
func (h *DebugHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if h.Store == nil {
		http.Error(w, "Saves disabled", http.StatusServiceUnavailable)
		return
	}
	path, err := h.Session.Save(h.Store)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"path": path})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника (нужно для локального debug-клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Если data == nil (например, пустая очередь), возвращаем пустой массив [], а не null
	if data == nil {
		w.Write([]byte("[]"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
