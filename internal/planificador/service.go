package planificador

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/contexto"
	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/pkg/memoria"
)

// Config son las perillas del planificador. Vienen del archivo de
// configuración del módulo.
type Config struct {
	// Algoritmo selecciona la política: PRIORIDADES, AFINIDAD o EFICIENCIA.
	Algoritmo string
	// Alpha es el peso del feedback en la media móvil exponencial de
	// afinidad. Por defecto 0.5.
	Alpha float64
	// MaxSaltos es la cota de inanición: cantidad máxima de selecciones
	// consecutivas en que una cola con trabajo puede ser salteada antes de
	// forzar su turno. Por defecto 4.
	MaxSaltos int
	// Cores son los cores lógicos que atiende este planificador.
	Cores []string
	// ModoDebug hace fatales las violaciones de invariantes (PID duplicado
	// en cola) en lugar de ignorarlas defensivamente.
	ModoDebug bool
}

const (
	AlphaDefault     = 0.5
	MaxSaltosDefault = 4
)

// Service es el núcleo del planificador: una cola FIFO por nivel definido
// por la política, sobre una única tabla de procesos compartida. Todo el
// estado mutable compartido (colas y saltos) se protege con un único mutex;
// la tabla tiene el suyo propio y nunca se toman anidados en sentido
// inverso.
type Service struct {
	mu    sync.Mutex
	Tabla *proceso.TablaProcesos
	// Memoria puede ser nil en modo standalone: no se notifica la
	// liberación de espacios al reaper.
	Memoria *memoria.Memoria
	Log     *slog.Logger

	// motores: un motor y un banco de registros por core. Los contextos
	// guardados de un core jamás pasan por el banco de otro.
	motores map[string]*contexto.MotorContexto

	politica Politica
	colas    [][]int
	saltos   []int
	// inicioEjecucion marca, por core, el comienzo del tramo EXEC vigente
	// para la contabilidad de tiempo de CPU.
	inicioEjecucion map[string]time.Time
	cfg             Config
}

// NewPlanificador arma el planificador con la política resuelta una única
// vez a partir de la configuración. motores puede venir incompleto o nil:
// todo core configurado sin motor propio recibe uno con su CPU simulada.
func NewPlanificador(tabla *proceso.TablaProcesos, motores map[string]*contexto.MotorContexto, mem *memoria.Memoria, logger *slog.Logger, cfg Config) *Service {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = AlphaDefault
	}
	if cfg.MaxSaltos <= 0 {
		cfg.MaxSaltos = MaxSaltosDefault
	}
	if len(cfg.Cores) == 0 {
		cfg.Cores = []string{"cpu-1"}
	}
	if motores == nil {
		motores = make(map[string]*contexto.MotorContexto, len(cfg.Cores))
	}
	for _, core := range cfg.Cores {
		if _, ok := motores[core]; !ok {
			motores[core] = contexto.NewMotor(contexto.NewCPUSimulada(), mem, logger)
		}
	}

	politica := nuevaPolitica(cfg.Algoritmo, logger)
	return &Service{
		Tabla:           tabla,
		Memoria:         mem,
		motores:         motores,
		Log:             logger,
		politica:        politica,
		colas:           make([][]int, politica.CantidadColas()),
		saltos:          make([]int, politica.CantidadColas()),
		inicioEjecucion: make(map[string]time.Time),
		cfg:             cfg,
	}
}

// Cores devuelve los cores configurados.
func (s *Service) Cores() []string {
	return s.cfg.Cores
}

// Colas devuelve una copia de las colas para diagnóstico: se toma la foto
// bajo el lock y se trabaja sobre la copia afuera.
func (s *Service) Colas() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	copia := make([][]int, len(s.colas))
	for i, cola := range s.colas {
		copia[i] = append([]int(nil), cola...)
	}
	return copia
}

// EnCola indica si el PID está en alguna cola de listos.
func (s *Service) EnCola(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contieneLocked(pid)
}

func (s *Service) contieneLocked(pid int) bool {
	for _, cola := range s.colas {
		for _, encolado := range cola {
			if encolado == pid {
				return true
			}
		}
	}
	return false
}

func (s *Service) removerDeColasLocked(pid int) {
	for i, cola := range s.colas {
		for j, encolado := range cola {
			if encolado == pid {
				s.colas[i] = append(cola[:j:j], cola[j+1:]...)
				return
			}
		}
	}
}
