package planificador

import (
	"testing"
	"time"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

func TestPoliticaPrioridades_Clasificar(t *testing.T) {
	p := &politicaPrioridades{}

	tests := []struct {
		name      string
		prioridad proceso.Prioridad
		want      int
	}{
		{name: "baja", prioridad: proceso.PrioridadBaja, want: 0},
		{name: "normal", prioridad: proceso.PrioridadNormal, want: 1},
		{name: "alta", prioridad: proceso.PrioridadAlta, want: 2},
		{name: "realtime", prioridad: proceso.PrioridadRealtime, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcb := &proceso.PCB{Prioridad: tt.prioridad}
			if got := p.Clasificar(pcb); got != tt.want {
				t.Errorf("Clasificar() = %d, se esperaba %d", got, tt.want)
			}
		})
	}
}

func TestPoliticaPrioridades_ElegirCola(t *testing.T) {
	p := &politicaPrioridades{}

	tests := []struct {
		name  string
		colas [][]int
		want  int
	}{
		{name: "todas vacías", colas: [][]int{{}, {}, {}, {}}, want: -1},
		{name: "gana el nivel más alto", colas: [][]int{{1}, {2}, {}, {4}}, want: 3},
		{name: "solo el nivel bajo", colas: [][]int{{1}, {}, {}, {}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ElegirCola(tt.colas); got != tt.want {
				t.Errorf("ElegirCola() = %d, se esperaba %d", got, tt.want)
			}
		})
	}
}

func TestPoliticaAfinidad_Clasificar(t *testing.T) {
	p := nuevaPoliticaAfinidad()

	tests := []struct {
		name     string
		afinidad float64
		want     int
	}{
		{name: "alta", afinidad: 0.9, want: 0},
		{name: "borde alto queda en media", afinidad: 0.7, want: 1},
		{name: "media", afinidad: 0.5, want: 1},
		{name: "baja", afinidad: 0.4, want: 2},
		{name: "cero", afinidad: 0, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcb := &proceso.PCB{Afinidad: tt.afinidad}
			if got := p.Clasificar(pcb); got != tt.want {
				t.Errorf("Clasificar() = %d, se esperaba %d", got, tt.want)
			}
		})
	}
}

// El round robin pesado reparte 4/2/1 entre los buckets alto/medio/bajo: a
// lo largo de dos vueltas completas cada bucket recibe su cuota exacta.
func TestPoliticaAfinidad_RepartoPesado(t *testing.T) {
	p := nuevaPoliticaAfinidad()
	colas := [][]int{{1}, {2}, {3}}

	conteo := [3]int{}
	for i := 0; i < 14; i++ {
		elegida := p.ElegirCola(colas)
		if elegida < 0 {
			t.Fatalf("ElegirCola() = -1 con colas cargadas")
		}
		p.Consumir(elegida)
		conteo[elegida]++
	}

	if conteo != [3]int{8, 4, 2} {
		t.Errorf("reparto = %v, se esperaba [8 4 2]", conteo)
	}
}

// ElegirCola es preferencia pura: sin Consumir en el medio, repetirla no
// mueve los créditos. El consumo se imputa solo a la cola servida, así una
// selección forzada por inanición no le cobra el turno a la preferida.
func TestPoliticaAfinidad_ConsumoSoloDeLaColaServida(t *testing.T) {
	p := nuevaPoliticaAfinidad()
	colas := [][]int{{1}, {2}, {3}}

	for i := 0; i < 3; i++ {
		if got := p.ElegirCola(colas); got != 0 {
			t.Fatalf("ElegirCola() repetida = %d, se esperaba 0", got)
		}
	}

	// Se sirve la cola baja (turno forzado): la preferencia sigue intacta.
	p.Consumir(2)
	if got := p.ElegirCola(colas); got != 0 {
		t.Errorf("ElegirCola() = %d, el consumo ajeno no debía mover la preferencia", got)
	}
}

func TestPoliticaAfinidad_SoloColasConTrabajo(t *testing.T) {
	p := nuevaPoliticaAfinidad()
	colas := [][]int{{}, {}, {3}}

	for i := 0; i < 5; i++ {
		got := p.ElegirCola(colas)
		if got != 2 {
			t.Fatalf("ElegirCola() = %d, se esperaba 2", got)
		}
		p.Consumir(got)
	}
}

func TestPoliticaEficiencia_Clasificar(t *testing.T) {
	p := &politicaEficiencia{}

	tests := []struct {
		name      string
		tiempoCPU time.Duration
		want      int
	}{
		{name: "proceso nuevo rinde alto", tiempoCPU: 0, want: 0},
		{name: "consumo medio", tiempoCPU: time.Second, want: 1},
		{name: "consumo alto rinde bajo", tiempoCPU: 5 * time.Second, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcb := &proceso.PCB{TiempoCPU: tt.tiempoCPU}
			if got := p.Clasificar(pcb); got != tt.want {
				t.Errorf("Clasificar() = %d, se esperaba %d", got, tt.want)
			}
		})
	}
}

func TestNuevaPolitica_AlgoritmoDesconocido(t *testing.T) {
	p := nuevaPolitica("SJF", log.BuildLogger("error"))
	if p.Nombre() != AlgoritmoPrioridades {
		t.Errorf("Nombre() = %s, se esperaba la política por defecto", p.Nombre())
	}
}
