package contexto

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

// OperacionesContexto es la frontera angosta con el hardware. En un target
// real hay una implementación por arquitectura (assembly que vuelca y carga
// registros y enmascara interrupciones con cli/sti); todo lo que está por
// encima del motor depende solo de esta interfaz, lo que permite testear
// tabla, colas y políticas con la CPU simulada.
type OperacionesContexto interface {
	Guardar(destino *ContextoCPU)
	Restaurar(fuente *ContextoCPU)
	EnmascararInterrupciones()
	DesenmascararInterrupciones()
}

// ActivadorEspacio es lo único que el motor necesita del módulo de memoria.
type ActivadorEspacio interface {
	Activar(espacio uuid.UUID, pid int) error
}

// MotorContexto implementa el intercambio de contexto: guarda el contexto
// saliente, activa el espacio de direcciones entrante si corresponde y
// restaura el contexto entrante.
type MotorContexto struct {
	ops     OperacionesContexto
	memoria ActivadorEspacio
	log     *slog.Logger
}

// NewMotor crea el motor. memoria puede ser nil en modo standalone (sin
// módulo de memoria conectado): en ese caso no se activan espacios.
func NewMotor(ops OperacionesContexto, memoria ActivadorEspacio, logger *slog.Logger) *MotorContexto {
	return &MotorContexto{
		ops:     ops,
		memoria: memoria,
		log:     logger,
	}
}

// Intercambiar corre las dos fases del cambio de contexto con las
// interrupciones enmascaradas de punta a punta: una interrupción anidada que
// observe un contexto a medio guardar es comportamiento indefinido.
//
// Un contexto entrante inválido es fatal y se detecta ANTES de tocar ningún
// registro: una vez iniciado el volcado no hay camino de retorno seguro, así
// que acá no se propagan errores, se hace panic hacia el handler del kernel.
//
// Para un proceso nuevo la restauración no "retorna" en el sentido normal:
// la ejecución reanuda dentro del contexto restaurado. Quien llama no debe
// asumir continuación secuencial salvo para la próxima reanudación del dueño
// del contexto saliente.
func (m *MotorContexto) Intercambiar(saliente, entrante *ContextoCPU, espacio *uuid.UUID, pid int) {
	if !entrante.Valido() {
		m.log.Error("Contexto entrante corrupto, no hay continuación segura",
			log.IntAttr("pid", pid),
			log.StringAttr("rip", fmt.Sprintf("%#x", entrante.RIP)),
			log.StringAttr("rsp", fmt.Sprintf("%#x", entrante.RSP)),
		)
		panic(fmt.Sprintf("kernel panic: contexto inválido para el PID %d (RIP=%#x)", pid, entrante.RIP))
	}

	m.ops.EnmascararInterrupciones()
	defer m.ops.DesenmascararInterrupciones()

	// Fase 1: volcar todos los registros vivos en el contexto saliente.
	m.ops.Guardar(saliente)

	// Fase 2: activar el espacio de direcciones entrante. Ya pasamos el
	// guardado, una falla acá también es fatal.
	if espacio != nil {
		if m.memoria == nil {
			m.log.Debug("Sin módulo de memoria conectado, se omite la activación",
				log.IntAttr("pid", pid))
		} else if err := m.memoria.Activar(*espacio, pid); err != nil {
			m.log.Error("Fallo al activar el espacio de direcciones",
				log.IntAttr("pid", pid),
				log.ErrAttr(err),
			)
			panic(fmt.Sprintf("kernel panic: no se pudo activar el espacio del PID %d: %v", pid, err))
		}
	}

	// Fase 3: cargar los registros entrantes, RIP incluido.
	m.ops.Restaurar(entrante)
}
