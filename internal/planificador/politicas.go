package planificador

import (
	"log/slog"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

const (
	AlgoritmoPrioridades = "PRIORIDADES"
	AlgoritmoAfinidad    = "AFINIDAD"
	AlgoritmoEficiencia  = "EFICIENCIA"
)

// Politica decide la ubicación en cola de un proceso y el orden de selección
// entre colas. Las variantes son intercambiables: el algoritmo se resuelve
// una sola vez al construir el planificador, nunca por llamada.
//
// ElegirCola devuelve la preferencia pura de la política (-1 si todas las
// colas están vacías) y no muta estado; la cota de inanición la aplica el
// Service por encima, de forma uniforme para todas las políticas. Consumir
// informa la cola efectivamente servida: las políticas con créditos imputan
// ahí su consumo, nunca en ElegirCola.
type Politica interface {
	Nombre() string
	CantidadColas() int
	Clasificar(pcb *proceso.PCB) int
	ElegirCola(colas [][]int) int
	Consumir(cola int)
}

// nuevaPolitica resuelve el algoritmo configurado. Un nombre desconocido cae
// a PRIORIDADES con un warning, igual que los algoritmos no reconocidos del
// resto del módulo.
func nuevaPolitica(algoritmo string, logger *slog.Logger) Politica {
	switch algoritmo {
	case AlgoritmoPrioridades:
		return &politicaPrioridades{}
	case AlgoritmoAfinidad:
		return nuevaPoliticaAfinidad()
	case AlgoritmoEficiencia:
		return &politicaEficiencia{}
	default:
		logger.Warn("Algoritmo de planificación no reconocido, se usa PRIORIDADES",
			log.StringAttr("algoritmo", algoritmo))
		return &politicaPrioridades{}
	}
}

// politicaPrioridades: una cola por nivel de prioridad, se elige siempre el
// nivel más alto no vacío. La inanición de los niveles bajos la corta la
// cota de saltos del Service.
type politicaPrioridades struct{}

func (p *politicaPrioridades) Nombre() string     { return AlgoritmoPrioridades }
func (p *politicaPrioridades) CantidadColas() int { return 4 }

func (p *politicaPrioridades) Clasificar(pcb *proceso.PCB) int {
	return int(pcb.Prioridad)
}

func (p *politicaPrioridades) ElegirCola(colas [][]int) int {
	for nivel := int(proceso.PrioridadRealtime); nivel >= 0; nivel-- {
		if len(colas[nivel]) > 0 {
			return nivel
		}
	}
	return -1
}

func (p *politicaPrioridades) Consumir(cola int) {}

// pesosAfinidad define el reparto del round robin pesado: de cada 7 turnos,
// 4 van al bucket de afinidad alta, 2 al medio y 1 al bajo.
var pesosAfinidad = [3]int{4, 2, 1}

// politicaAfinidad: buckets por puntaje de afinidad (>0.7 alta, >0.4 media,
// resto baja) con selección pesada hacia los buckets altos.
type politicaAfinidad struct {
	creditos [3]int
}

func nuevaPoliticaAfinidad() *politicaAfinidad {
	return &politicaAfinidad{creditos: pesosAfinidad}
}

func (p *politicaAfinidad) Nombre() string     { return AlgoritmoAfinidad }
func (p *politicaAfinidad) CantidadColas() int { return 3 }

func (p *politicaAfinidad) Clasificar(pcb *proceso.PCB) int {
	return bucketPorPuntaje(pcb.Afinidad)
}

func (p *politicaAfinidad) ElegirCola(colas [][]int) int {
	return p.conMasCreditos(colas)
}

// Consumir descuenta el crédito de la cola servida. Si la cola llegó sin
// créditos (todas agotadas, o una selección forzada), arranca una vuelta
// nueva del reparto.
func (p *politicaAfinidad) Consumir(cola int) {
	if p.creditos[cola] == 0 {
		p.creditos = pesosAfinidad
	}
	p.creditos[cola]--
}

// conMasCreditos devuelve la cola no vacía con más créditos restantes; ante
// empate gana el bucket más alto.
func (p *politicaAfinidad) conMasCreditos(colas [][]int) int {
	elegida := -1
	for i := range colas {
		if len(colas[i]) == 0 {
			continue
		}
		if elegida < 0 || p.creditos[i] > p.creditos[elegida] {
			elegida = i
		}
	}
	return elegida
}

// politicaEficiencia: clasifica por una métrica observada en runtime, la
// inversa del tiempo de CPU consumido, sin entrada externa. Los procesos
// cortos quedan en el bucket alto y se atienden primero.
type politicaEficiencia struct{}

func (p *politicaEficiencia) Nombre() string     { return AlgoritmoEficiencia }
func (p *politicaEficiencia) CantidadColas() int { return 3 }

func (p *politicaEficiencia) Clasificar(pcb *proceso.PCB) int {
	return bucketPorPuntaje(proceso.Eficiencia(pcb.TiempoCPU))
}

func (p *politicaEficiencia) ElegirCola(colas [][]int) int {
	for i := range colas {
		if len(colas[i]) > 0 {
			return i
		}
	}
	return -1
}

func (p *politicaEficiencia) Consumir(cola int) {}

func bucketPorPuntaje(puntaje float64) int {
	switch {
	case puntaje > 0.7:
		return 0
	case puntaje > 0.4:
		return 1
	default:
		return 2
	}
}
