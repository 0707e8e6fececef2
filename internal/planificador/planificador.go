package planificador

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/contexto"
	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

// CrearProceso da de alta el proceso en la tabla y lo encola de una, así
// todo proceso READY está siempre en exactamente una cola. El despacho
// ocurre recién en la próxima pasada de planificación (tick o yield).
func (s *Service) CrearProceso(entryPoint, stackPointer uint64, padre int, afinidad *float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid, err := s.Tabla.CrearProceso(entryPoint, stackPointer, padre, afinidad)
	if err != nil {
		return 0, err
	}
	_ = s.encolarLocked(pid)
	return pid, nil
}

// CambiarPrioridad ajusta el nivel de prioridad del proceso y, si estaba
// encolado, lo reubica en la cola que le corresponde ahora. La escritura del
// PCB la hace la tabla bajo su propio lock.
func (s *Service) CambiarPrioridad(pid int, prioridad proceso.Prioridad) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Tabla.CambiarPrioridad(pid, prioridad); err != nil {
		return err
	}
	if s.contieneLocked(pid) {
		s.removerDeColasLocked(pid)
		return s.encolarLocked(pid)
	}
	return nil
}

// Encolar mete un proceso READY en la cola que le asigna la política.
func (s *Service) Encolar(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encolarLocked(pid)
}

func (s *Service) encolarLocked(pid int) error {
	pcb, err := s.Tabla.Snapshot(pid)
	if err != nil {
		return err
	}
	if pcb.Estado != proceso.EstadoReady {
		if s.cfg.ModoDebug {
			panic(fmt.Sprintf("violación de invariante: se encola el PID %d en estado %s", pid, pcb.Estado))
		}
		s.Log.Error("Se ignora el encolado de un proceso que no está READY",
			log.IntAttr("pid", pid),
			log.StringAttr("estado", string(pcb.Estado)))
		return nil
	}
	if s.contieneLocked(pid) {
		// Doble pertenencia: error de lógica, no se tolera en silencio.
		if s.cfg.ModoDebug {
			panic(fmt.Sprintf("violación de invariante: el PID %d ya está encolado", pid))
		}
		s.Log.Error("Se ignora el encolado duplicado", log.IntAttr("pid", pid))
		return nil
	}

	cola := s.politica.Clasificar(&pcb)
	if cola < 0 || cola >= len(s.colas) {
		s.Log.Error("La política clasificó fuera de rango, se usa la última cola",
			log.IntAttr("pid", pid),
			log.IntAttr("cola", cola))
		cola = len(s.colas) - 1
	}
	s.colas[cola] = append(s.colas[cola], pid)
	s.Log.Debug("Proceso encolado",
		log.IntAttr("pid", pid),
		log.IntAttr("cola", cola),
		log.StringAttr("politica", s.politica.Nombre()))
	return nil
}

// SeleccionarSiguiente saca el próximo PID a ejecutar según la política.
// Devuelve 0 únicamente cuando todas las colas están vacías; en ese caso el
// llamador debe ir por el camino de idle/halt.
func (s *Service) SeleccionarSiguiente() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seleccionarLocked()
}

func (s *Service) seleccionarLocked() int {
	for {
		elegida := s.politica.ElegirCola(s.colas)
		if elegida < 0 {
			return 0
		}

		// Cota de inanición: una cola con trabajo salteada MaxSaltos veces
		// consecutivas fuerza su turno aunque la política prefiera otra.
		masPostergada, peorSalto := -1, 0
		for j := range s.colas {
			if j != elegida && len(s.colas[j]) > 0 && s.saltos[j] >= s.cfg.MaxSaltos && s.saltos[j] > peorSalto {
				masPostergada, peorSalto = j, s.saltos[j]
			}
		}
		if masPostergada >= 0 {
			s.Log.Debug("Selección forzada por cota de inanición",
				log.IntAttr("cola", masPostergada),
				log.IntAttr("saltos", peorSalto))
			elegida = masPostergada
		}

		// El consumo se imputa a la cola efectivamente servida, aun cuando la
		// cota de inanición pisó la preferencia de la política.
		s.politica.Consumir(elegida)

		// FIFO estricto dentro de la cola: siempre la cabeza.
		pid := s.colas[elegida][0]
		s.colas[elegida] = s.colas[elegida][1:]
		s.saltos[elegida] = 0
		for j := range s.colas {
			if j != elegida && len(s.colas[j]) > 0 {
				s.saltos[j]++
			}
		}

		// Las entradas obsoletas (procesos finalizados o bloqueados mientras
		// esperaban) se descartan y se sigue buscando.
		pcb, err := s.Tabla.Snapshot(pid)
		if err != nil || pcb.Estado != proceso.EstadoReady {
			s.Log.Debug("Entrada obsoleta descartada de la cola", log.IntAttr("pid", pid))
			continue
		}
		return pid
	}
}

// Planificar es el punto de entrada de planificación sobre un core: elige el
// próximo proceso y, si difiere del actual, conmuta estados y contexto. Si
// no hay candidato y el actual sigue vivo, se evita el auto-switch y el
// proceso continúa.
func (s *Service) Planificar(core string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planificarLocked(core)
}

func (s *Service) planificarLocked(core string) {
	candidato := s.seleccionarLocked()
	if candidato == 0 {
		if s.Tabla.Actual(core) == 0 {
			s.Log.Debug("Sin procesos listos, el core queda idle",
				log.StringAttr("core", core))
		}
		return
	}
	s.despacharLocked(core, candidato)
}

// despacharLocked conmuta el core al candidato sobre el motor de ese core:
// guarda el contexto saliente, activa el espacio entrante si cambia, restaura
// el contexto nuevo y recién entonces actualiza la tabla. El intercambio
// trabaja sobre copias locales; el contexto guardado vuelve al PCB a través
// de la tabla, bajo su lock. El desalojado vuelve al final de su cola.
func (s *Service) despacharLocked(core string, candidato int) {
	motor, ok := s.motores[core]
	if !ok {
		s.Log.Error("Core desconocido", log.StringAttr("core", core))
		return
	}
	pcbNuevo, err := s.Tabla.Snapshot(candidato)
	if err != nil {
		s.Log.Error("El candidato desapareció antes del despacho",
			log.IntAttr("pid", candidato), log.ErrAttr(err))
		return
	}

	anterior := s.Tabla.Actual(core)
	cambiaEspacio := true
	if anterior != 0 {
		if pcbAnterior, err := s.Tabla.Snapshot(anterior); err == nil {
			cambiaEspacio = pcbAnterior.Espacio != pcbNuevo.Espacio
		}
	}
	var espacio *uuid.UUID
	if cambiaEspacio {
		espacio = &pcbNuevo.Espacio
	}

	s.acumularTiempoLocked(core, anterior)

	ctxEntrante := pcbNuevo.Contexto
	var ctxSaliente contexto.ContextoCPU
	motor.Intercambiar(&ctxSaliente, &ctxEntrante, espacio, candidato)
	if anterior != 0 {
		s.Tabla.GuardarContexto(anterior, ctxSaliente)
	}

	if err := s.Tabla.EstablecerActual(core, candidato); err != nil {
		s.Log.Error("No se pudo promover el candidato a EXEC",
			log.IntAttr("pid", candidato), log.ErrAttr(err))
		// EstablecerActual ya demovió al anterior: se lo reencola para no
		// dejar un READY fuera de toda cola.
		if anterior != 0 {
			_ = s.encolarLocked(anterior)
		}
		return
	}
	s.inicioEjecucion[core] = time.Now()

	if anterior != 0 {
		_ = s.encolarLocked(anterior)
	}
}

// InterrupcionReloj es el gancho de desalojo: lo invoca el handler del timer
// con las interrupciones ya enmascaradas. Un tick es simplemente una pasada
// de planificación sobre el core.
func (s *Service) InterrupcionReloj(core string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Log.Debug("Interrupción de reloj", log.StringAttr("core", core))
	s.planificarLocked(core)
}

// CederCPU es el único camino por el que un proceso entrega la CPU
// voluntariamente sin bloquearse: contabiliza el tramo consumido, actualiza
// la afinidad con la media móvil exponencial y replanifica. El feedback
// externo es opcional; si no viene, se usa la eficiencia local.
func (s *Service) CederCPU(core string, feedback *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.Tabla.Actual(core)
	if pid == 0 {
		return
	}
	s.acumularTiempoLocked(core, pid)

	afinidad, err := s.Tabla.AplicarFeedback(pid, feedback, s.cfg.Alpha)
	if err != nil {
		return
	}

	s.Log.Debug("Yield",
		log.IntAttr("pid", pid),
		log.StringAttr("core", core),
		log.Float64Attr("afinidad", afinidad))

	s.planificarLocked(core)
}

// Bloquear atiende la señal de IPC/drivers: el proceso espera un recurso.
// El core que libera se replanifica en el acto.
func (s *Service) Bloquear(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	core, err := s.Tabla.MarcarBloqueado(pid)
	if err != nil {
		return err
	}
	s.removerDeColasLocked(pid)
	if core != "" {
		s.acumularTiempoLocked(core, pid)
		s.planificarLocked(core)
	}
	return nil
}

// Desbloquear despierta un proceso y lo vuelve a encolar; lo levanta el
// próximo tick o yield.
func (s *Service) Desbloquear(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	despertado, err := s.Tabla.MarcarReady(pid)
	if err != nil {
		return err
	}
	if !despertado {
		return nil
	}
	return s.encolarLocked(pid)
}

// Finalizar termina el proceso. Si el objetivo no está corriendo, solo
// cambia de estado y las próximas selecciones lo saltean; si está corriendo,
// el despacho del sucesor ocurre acá mismo, que es un punto seguro: bajo el
// lock del planificador jamás hay un intercambio de contexto en vuelo.
func (s *Service) Finalizar(pid int, codigoSalida int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// El último tramo de CPU se imputa antes de que la tabla emita las
	// métricas de cierre.
	for _, c := range s.cfg.Cores {
		if s.Tabla.Actual(c) == pid {
			s.acumularTiempoLocked(c, pid)
			break
		}
	}

	core, err := s.Tabla.Finalizar(pid, codigoSalida)
	if err != nil {
		return err
	}
	s.removerDeColasLocked(pid)
	if core != "" {
		s.planificarLocked(core)
	}
	return nil
}

// LimpiarFinalizados libera los PCBs en EXIT y avisa a memoria para que
// libere cada espacio de direcciones. La notificación HTTP corre fuera del
// lock del planificador.
func (s *Service) LimpiarFinalizados() []int {
	limpiados := s.Tabla.LimpiarFinalizados()
	if s.Memoria != nil {
		for _, pid := range limpiados {
			if !s.Memoria.Finalizar(pid) {
				s.Log.Warn("Memoria no confirmó la liberación del espacio",
					log.IntAttr("pid", pid))
			}
		}
	}
	return limpiados
}

// acumularTiempoLocked suma al proceso el tramo de CPU desde el inicio de su
// ejecución vigente y reinicia la marca del core.
func (s *Service) acumularTiempoLocked(core string, pid int) {
	inicio, ok := s.inicioEjecucion[core]
	if pid != 0 && ok && !inicio.IsZero() {
		s.Tabla.AgregarTiempoCPU(pid, time.Since(inicio))
	}
	s.inicioEjecucion[core] = time.Now()
}
