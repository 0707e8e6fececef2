package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

// CrearProceso da de alta un proceso nuevo. Un fallo por agotamiento de PIDs
// vuelve al solicitante como error de syscall.
func (h *Handler) CrearProceso(w http.ResponseWriter, r *http.Request) {
	var req CrearProcesoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	pid, err := h.Planificador.CrearProceso(req.EntryPoint, req.StackPointer, req.Padre, req.Afinidad)
	if err != nil {
		h.Log.Error("No se pudo crear el proceso", log.ErrAttr(err))
		http.Error(w, err.Error(), http.StatusInsufficientStorage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(CrearProcesoResponse{PID: pid})
}

func (h *Handler) FinalizarProceso(w http.ResponseWriter, r *http.Request) {
	var req FinalizarProcesoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	if err := h.Planificador.Finalizar(req.PID, req.CodigoSalida); err != nil {
		h.responderErrorProceso(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// BloquearProceso y DesbloquearProceso son la frontera con IPC y drivers:
// solo cambian el estado entre READY y BLOCKED.
func (h *Handler) BloquearProceso(w http.ResponseWriter, r *http.Request) {
	var req ProcesoPIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	if err := h.Planificador.Bloquear(req.PID); err != nil {
		h.responderErrorProceso(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) DesbloquearProceso(w http.ResponseWriter, r *http.Request) {
	var req ProcesoPIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	if err := h.Planificador.Desbloquear(req.PID); err != nil {
		h.responderErrorProceso(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CambiarPrioridad ajusta el nivel de prioridad de un proceso vivo.
func (h *Handler) CambiarPrioridad(w http.ResponseWriter, r *http.Request) {
	var req PrioridadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}
	if req.Prioridad < int(proceso.PrioridadBaja) || req.Prioridad > int(proceso.PrioridadRealtime) {
		http.Error(w, "prioridad fuera de rango", http.StatusBadRequest)
		return
	}

	if err := h.Planificador.CambiarPrioridad(req.PID, proceso.Prioridad(req.Prioridad)); err != nil {
		h.responderErrorProceso(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ActualizarAfinidad es el único canal por el que un subsistema externo
// influye en la planificación. El delta se recorta siempre.
func (h *Handler) ActualizarAfinidad(w http.ResponseWriter, r *http.Request) {
	var req AfinidadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	afinidad, err := h.Tabla.ActualizarAfinidad(req.PID, req.Delta)
	if err != nil {
		h.responderErrorProceso(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(AfinidadResponse{PID: req.PID, Afinidad: afinidad})
}

func (h *Handler) ObtenerProceso(w http.ResponseWriter, r *http.Request) {
	var req ProcesoPIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Log.Error("Error al decodificar mensaje", log.ErrAttr(err))
		http.Error(w, "error al decodificar mensaje", http.StatusBadRequest)
		return
	}

	pcb, err := h.Tabla.Snapshot(req.PID)
	if err != nil {
		h.responderErrorProceso(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pcb)
}

func (h *Handler) Estados(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Tabla.ContarEstados())
}

func (h *Handler) ProcesosReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Tabla.ProcesosReady())
}

// LimpiarFinalizados es el reaper: corre por pedido explícito, nunca desde
// contexto de interrupción.
func (h *Handler) LimpiarFinalizados(w http.ResponseWriter, r *http.Request) {
	limpiados := h.Planificador.LimpiarFinalizados()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LimpiezaResponse{Limpiados: limpiados})
}

func (h *Handler) responderErrorProceso(w http.ResponseWriter, err error) {
	if errors.Is(err, proceso.ErrProcesoNoEncontrado) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
