package proceso

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/contexto"
)

const (
	EstadoReady     Estado = "READY"
	EstadoExec      Estado = "EXEC"
	EstadoBloqueado Estado = "BLOCKED"
	EstadoExit      Estado = "EXIT"
)

type Estado string

const (
	PrioridadBaja Prioridad = iota
	PrioridadNormal
	PrioridadAlta
	PrioridadRealtime
)

type Prioridad int

// FactorHerenciaAfinidad amortigua la afinidad heredada: un hijo arranca con
// el 80% del puntaje del padre salvo que el creador indique otro valor.
const FactorHerenciaAfinidad = 0.8

// PCB es el bloque de control de un proceso. La TablaProcesos es la única
// dueña de estas estructuras: el planificador solo conoce PIDs.
type PCB struct {
	PID            int                  `json:"pid"`
	Estado         Estado               `json:"estado"`
	Prioridad      Prioridad            `json:"prioridad"`
	Afinidad       float64              `json:"afinidad"`
	Contexto       contexto.ContextoCPU `json:"contexto"`
	Espacio        uuid.UUID            `json:"espacio"`
	Padre          int                  `json:"padre"` // 0 = sin padre
	Hijos          map[int]struct{}     `json:"-"`
	CodigoSalida   *int                 `json:"codigo_salida,omitempty"`
	TiempoCPU      time.Duration        `json:"tiempo_cpu"`
	TiempoCreacion time.Time            `json:"tiempo_creacion"`
	MetricasEstado map[Estado]int       `json:"metricas_estado"`
}

// PuedeTransicionarA indica si el cambio de estado es legal según el ciclo de
// vida: READY↔EXEC, EXEC→BLOCKED, BLOCKED→READY y cualquiera→EXIT.
// EXIT es absorbente.
func (e Estado) PuedeTransicionarA(nuevo Estado) bool {
	if e == EstadoExit {
		return false
	}
	if nuevo == EstadoExit {
		return true
	}
	switch e {
	case EstadoReady:
		return nuevo == EstadoExec
	case EstadoExec:
		return nuevo == EstadoReady || nuevo == EstadoBloqueado
	case EstadoBloqueado:
		return nuevo == EstadoReady
	}
	return false
}

// ClampAfinidad normaliza un puntaje de afinidad al rango [0,1]. Los valores
// llegan de fuera del núcleo, así que no se confía en ellos: NaN e infinitos
// se descartan a 0.
func ClampAfinidad(valor float64) float64 {
	if math.IsNaN(valor) || math.IsInf(valor, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, valor))
}

// Eficiencia es la métrica observada en runtime: la inversa del tiempo de
// CPU consumido, en (0,1]. Un proceso que casi no consumió CPU rinde cerca
// de 1.
func Eficiencia(tiempoCPU time.Duration) float64 {
	return 1.0 / (tiempoCPU.Seconds() + 1.0)
}
