package api

import (
	"encoding/json"
	"net/http"

	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

// RecibirInterrupciones atiende la interrupción del timer sobre un core.
// Quien dispara ya enmascaró las interrupciones; acá solo se planifica.
func (h *Handler) RecibirInterrupciones(w http.ResponseWriter, r *http.Request) {
	var req InterrupcionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	h.Planificador.InterrupcionReloj(req.Core)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Yield: el proceso actual del core entrega la CPU voluntariamente.
func (h *Handler) Yield(w http.ResponseWriter, r *http.Request) {
	var req YieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	h.Planificador.CederCPU(req.Core, req.Feedback)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ProcesoActual responde quién corre sobre el core: lo usa el dispatch de
// syscalls para saber quién pregunta.
func (h *Handler) ProcesoActual(w http.ResponseWriter, r *http.Request) {
	core := r.URL.Query().Get("core")
	if core == "" {
		http.Error(w, "falta el parámetro core", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ProcesoActualResponse{
		Core: core,
		PID:  h.Tabla.Actual(core),
	})
}
