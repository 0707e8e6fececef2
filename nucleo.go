package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sisoputnfrba/tp-golang/nucleo/cmd/api"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

const configFilePathDefault = "configs/config.json"

func main() {
	configFilePath := configFilePathDefault
	if len(os.Args) > 1 {
		configFilePath = os.Args[1]
	}

	h := api.NewHandler(configFilePath)

	mux := http.NewServeMux()

	// Tabla de procesos
	mux.HandleFunc("POST /procesos", h.CrearProceso)
	mux.HandleFunc("POST /procesos/finalizar", h.FinalizarProceso)
	mux.HandleFunc("POST /procesos/bloquear", h.BloquearProceso)       // IPC/drivers --> Núcleo
	mux.HandleFunc("POST /procesos/desbloquear", h.DesbloquearProceso) // IPC/drivers --> Núcleo
	mux.HandleFunc("POST /procesos/afinidad", h.ActualizarAfinidad)    // Heurística --> Núcleo
	mux.HandleFunc("POST /procesos/prioridad", h.CambiarPrioridad)
	mux.HandleFunc("POST /procesos/obtener", h.ObtenerProceso)
	mux.HandleFunc("POST /procesos/limpiar", h.LimpiarFinalizados)
	mux.HandleFunc("GET /procesos/estados", h.Estados)
	mux.HandleFunc("GET /procesos/ready", h.ProcesosReady)

	// Planificación
	mux.HandleFunc("POST /planificador/interrupciones", h.RecibirInterrupciones) // Timer --> Núcleo
	mux.HandleFunc("POST /planificador/yield", h.Yield)                          // Proceso --> Núcleo
	mux.HandleFunc("GET /planificador/actual", h.ProcesoActual)

	// El tick del timer desaloja periódicamente a cada core.
	quantum := time.Duration(h.Config.QuantumMs) * time.Millisecond
	if quantum <= 0 {
		quantum = 100 * time.Millisecond
	}
	for _, core := range h.Planificador.Cores() {
		go func(core string) {
			ticker := time.NewTicker(quantum)
			defer ticker.Stop()
			for range ticker.C {
				h.Planificador.InterrupcionReloj(core)
			}
		}(core)
	}

	h.Log.Info("Núcleo iniciado",
		log.StringAttr("algoritmo", h.Config.Algoritmo),
		log.IntAttr("cores", len(h.Planificador.Cores())),
	)

	direccion := fmt.Sprintf("%s:%d", h.Config.IpNucleo, h.Config.PortNucleo)
	if err := http.ListenAndServe(direccion, mux); err != nil {
		h.Log.Error("Error starting server", log.ErrAttr(err))
		panic(err)
	}
}
