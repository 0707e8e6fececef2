package proceso

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/contexto"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/uniqueid"
)

var (
	ErrProcesoNoEncontrado = errors.New("proceso no encontrado")
	ErrPIDsAgotados        = errors.New("PIDs agotados")
)

// TablaProcesos es la única dueña de los PCBs. El planificador guarda PIDs,
// nunca punteros a PCB. Toda mutación pasa por el mutex de la tabla; los
// diagnósticos devuelven copias para no retener el lock.
type TablaProcesos struct {
	mu           sync.Mutex
	procesos     map[int]*PCB
	actual       map[string]int // PID en EXEC por core, 0 = ninguno
	asignadorPID *uniqueid.UniqueID
	log          *slog.Logger
}

func NewTabla(maxPID int, logger *slog.Logger) *TablaProcesos {
	if maxPID <= 0 {
		maxPID = math.MaxInt32
	}
	return &TablaProcesos{
		procesos:     make(map[int]*PCB),
		actual:       make(map[string]int),
		asignadorPID: uniqueid.Init(maxPID),
		log:          logger,
	}
}

// CrearProceso asigna un PID fresco, arma el contexto inicial apuntando al
// entry point y deja el proceso en READY con prioridad Normal. La afinidad
// inicial la indica el creador o se hereda amortiguada del padre. Solo puede
// fallar por agotamiento de PIDs.
func (t *TablaProcesos) CrearProceso(entryPoint, stackPointer uint64, padre int, afinidad *float64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid, err := t.asignadorPID.GetUniqueID()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPIDsAgotados, err)
	}

	puntaje := 0.0
	switch {
	case afinidad != nil:
		puntaje = ClampAfinidad(*afinidad)
	case padre != 0:
		if pcbPadre, ok := t.procesos[padre]; ok {
			puntaje = ClampAfinidad(pcbPadre.Afinidad * FactorHerenciaAfinidad)
		}
	}

	espacio := uuid.New()
	pcb := &PCB{
		PID:            pid,
		Estado:         EstadoReady,
		Prioridad:      PrioridadNormal,
		Afinidad:       puntaje,
		Contexto:       contexto.Nuevo(entryPoint, stackPointer, espacio),
		Espacio:        espacio,
		Hijos:          make(map[int]struct{}),
		TiempoCreacion: time.Now(),
		MetricasEstado: map[Estado]int{EstadoReady: 1},
	}

	if padre != 0 {
		if pcbPadre, ok := t.procesos[padre]; ok {
			pcb.Padre = padre
			pcbPadre.Hijos[pid] = struct{}{}
		}
	}

	t.procesos[pid] = pcb
	t.log.Info(fmt.Sprintf("## (%d) Se crea el proceso - Estado: READY", pid),
		log.IntAttr("padre", pcb.Padre),
		log.Float64Attr("afinidad", pcb.Afinidad),
	)
	return pid, nil
}

// Obtener devuelve el PCB vivo. El puntero es de solo lectura: toda mutación
// de campos pasa por los métodos de la tabla, bajo su lock. Para la API usar
// Snapshot.
func (t *TablaProcesos) Obtener(pid int) (*PCB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pcb, ok := t.procesos[pid]
	if !ok {
		return nil, fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	return pcb, nil
}

// Snapshot devuelve una copia del PCB para diagnósticos y respuestas HTTP.
func (t *TablaProcesos) Snapshot(pid int) (PCB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pcb, ok := t.procesos[pid]
	if !ok {
		return PCB{}, fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	copia := *pcb
	copia.Hijos = make(map[int]struct{}, len(pcb.Hijos))
	for hijo := range pcb.Hijos {
		copia.Hijos[hijo] = struct{}{}
	}
	return copia, nil
}

// EstablecerActual demueve el proceso que estaba en EXEC sobre el core a
// READY y promueve al nuevo. Se invoca siempre junto con el intercambio de
// contexto, nunca uno sin el otro: EXEC refleja el contexto realmente
// cargado. pid 0 limpia el core.
func (t *TablaProcesos) EstablecerActual(core string, pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if anterior := t.actual[core]; anterior != 0 {
		if pcb, ok := t.procesos[anterior]; ok && pcb.Estado == EstadoExec {
			t.cambiarEstado(pcb, EstadoReady)
		}
	}
	t.actual[core] = 0

	if pid == 0 {
		return nil
	}

	pcb, ok := t.procesos[pid]
	if !ok {
		return fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	if pcb.Estado == EstadoExec {
		// Ya corre en otro core: violación del invariante de EXEC único.
		t.log.Error("Violación de invariante: el proceso ya está en EXEC",
			log.IntAttr("pid", pid),
			log.StringAttr("core", core),
		)
		return fmt.Errorf("PID %d ya se encuentra en EXEC", pid)
	}
	t.cambiarEstado(pcb, EstadoExec)
	t.actual[core] = pid
	return nil
}

// Actual devuelve el PID en EXEC sobre el core, 0 si el core está idle.
func (t *TablaProcesos) Actual(core string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actual[core]
}

// Finalizar pasa el proceso a EXIT guardando el código de salida. Los hijos
// quedan huérfanos (padre = 0), no se re-parentan a ningún ancestro. El PCB
// no se elimina: queda hasta
// que el reaper llame a LimpiarFinalizados. Devuelve el core sobre el que
// corría el proceso ("" si no corría) para que el planificador despache un
// sucesor en el próximo punto seguro.
func (t *TablaProcesos) Finalizar(pid int, codigoSalida int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return "", fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	if pcb.Estado == EstadoExit {
		return "", nil
	}

	t.cambiarEstado(pcb, EstadoExit)
	pcb.CodigoSalida = &codigoSalida

	core := ""
	for c, actual := range t.actual {
		if actual == pid {
			t.actual[c] = 0
			core = c
		}
	}

	// Los hijos quedan huérfanos y el padre deja de apuntar al finalizado.
	for hijo := range pcb.Hijos {
		if pcbHijo, ok := t.procesos[hijo]; ok {
			pcbHijo.Padre = 0
		}
	}
	if pcb.Padre != 0 {
		if pcbPadre, ok := t.procesos[pcb.Padre]; ok {
			delete(pcbPadre.Hijos, pid)
		}
	}

	t.log.Info(fmt.Sprintf("## (%d) Finaliza el proceso", pid),
		log.IntAttr("codigo_salida", codigoSalida))
	t.log.Info(fmt.Sprintf("## (%d) Métricas de estado: READY %d, EXEC %d, BLOCKED %d",
		pid, pcb.MetricasEstado[EstadoReady], pcb.MetricasEstado[EstadoExec],
		pcb.MetricasEstado[EstadoBloqueado]),
		log.StringAttr("tiempo_cpu", pcb.TiempoCPU.String()))
	return core, nil
}

// LimpiarFinalizados elimina de la tabla todos los PCBs en EXIT y devuelve
// sus PIDs para que el llamador libere recursos externos (espacios de
// direcciones en memoria). Nunca se llama desde contexto de interrupción.
func (t *TablaProcesos) LimpiarFinalizados() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var limpiados []int
	for pid, pcb := range t.procesos {
		if pcb.Estado == EstadoExit {
			limpiados = append(limpiados, pid)
		}
	}
	sort.Ints(limpiados)

	for _, pid := range limpiados {
		delete(t.procesos, pid)
		t.log.Debug("PCB liberado", log.IntAttr("pid", pid))
	}
	return limpiados
}

// MarcarBloqueado es la frontera con IPC y drivers: el proceso en EXEC pasa
// a BLOCKED porque espera un recurso. Devuelve el core que quedó libre.
func (t *TablaProcesos) MarcarBloqueado(pid int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return "", fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	if !pcb.Estado.PuedeTransicionarA(EstadoBloqueado) {
		t.log.Warn("Transición a BLOCKED ignorada",
			log.IntAttr("pid", pid),
			log.StringAttr("estado", string(pcb.Estado)))
		return "", nil
	}

	t.cambiarEstado(pcb, EstadoBloqueado)
	for c, actual := range t.actual {
		if actual == pid {
			t.actual[c] = 0
			return c, nil
		}
	}
	return "", nil
}

// MarcarReady despierta un proceso bloqueado. Devuelve si efectivamente lo
// despertó: el llamador debe encolarlo en el planificador solo en ese caso,
// para mantener la consistencia cola↔estado. Un doble despertar no es error.
func (t *TablaProcesos) MarcarReady(pid int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return false, fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	if pcb.Estado != EstadoBloqueado {
		t.log.Warn("Despertar ignorado: el proceso no estaba bloqueado",
			log.IntAttr("pid", pid),
			log.StringAttr("estado", string(pcb.Estado)))
		return false, nil
	}
	t.cambiarEstado(pcb, EstadoReady)
	return true, nil
}

// ActualizarAfinidad aplica un delta al puntaje de afinidad. El delta llega
// de un subsistema externo y se trata como entrada adversaria: el resultado
// siempre se recorta a [0,1].
func (t *TablaProcesos) ActualizarAfinidad(pid int, delta float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return 0, fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		t.log.Warn("Delta de afinidad inválido descartado",
			log.IntAttr("pid", pid),
			log.Float64Attr("delta", delta))
		return pcb.Afinidad, nil
	}
	pcb.Afinidad = ClampAfinidad(pcb.Afinidad + delta)
	return pcb.Afinidad, nil
}

// AplicarFeedback actualiza la afinidad con la media móvil exponencial
// a' = a*(1-alpha) + f*alpha. El feedback es opcional: si no viene, se usa
// la eficiencia observada del propio proceso. El resultado queda en [0,1].
func (t *TablaProcesos) AplicarFeedback(pid int, feedback *float64, alpha float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return 0, fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	f := 0.0
	if feedback != nil {
		f = ClampAfinidad(*feedback)
	} else {
		f = Eficiencia(pcb.TiempoCPU)
	}
	pcb.Afinidad = ClampAfinidad(pcb.Afinidad*(1-alpha) + f*alpha)
	return pcb.Afinidad, nil
}

// CambiarPrioridad escribe el nuevo nivel de prioridad del proceso.
func (t *TablaProcesos) CambiarPrioridad(pid int, prioridad Prioridad) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pcb, ok := t.procesos[pid]
	if !ok {
		return fmt.Errorf("%w: PID %d", ErrProcesoNoEncontrado, pid)
	}
	pcb.Prioridad = prioridad
	return nil
}

// GuardarContexto persiste en el PCB el contexto que el motor volcó durante
// un intercambio. Si el proceso ya no existe, el volcado se descarta.
func (t *TablaProcesos) GuardarContexto(pid int, ctx contexto.ContextoCPU) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pcb, ok := t.procesos[pid]; ok {
		pcb.Contexto = ctx
	}
}

// AgregarTiempoCPU acumula el tramo de CPU consumido por el proceso.
func (t *TablaProcesos) AgregarTiempoCPU(pid int, tramo time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pcb, ok := t.procesos[pid]; ok {
		pcb.TiempoCPU += tramo
	}
}

// ProcesosReady devuelve los PIDs en READY, ordenados, como snapshot de
// diagnóstico.
func (t *TablaProcesos) ProcesosReady() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var listos []int
	for pid, pcb := range t.procesos {
		if pcb.Estado == EstadoReady {
			listos = append(listos, pid)
		}
	}
	sort.Ints(listos)
	return listos
}

// ContarEstados devuelve cuántos procesos hay en cada estado.
func (t *TablaProcesos) ContarEstados() map[Estado]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	conteo := make(map[Estado]int)
	for _, pcb := range t.procesos {
		conteo[pcb.Estado]++
	}
	return conteo
}

// cambiarEstado aplica la transición con su log obligatorio y sus métricas.
// Se llama con el lock tomado.
func (t *TablaProcesos) cambiarEstado(pcb *PCB, nuevo Estado) {
	anterior := pcb.Estado
	pcb.Estado = nuevo
	pcb.MetricasEstado[nuevo]++
	t.log.Info(fmt.Sprintf("## (%d) Pasa del estado %s al estado %s", pcb.PID, anterior, nuevo))
}
