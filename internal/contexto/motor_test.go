package contexto

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

func contextoDePrueba() ContextoCPU {
	c := Nuevo(0x401000, 0x7FFE000, uuid.New())
	c.RAX = 0xDEADBEEF
	c.RBX = 1
	c.RCX = 2
	c.RDX = 3
	c.RSI = 4
	c.RDI = 5
	c.R8 = 8
	c.R9 = 9
	c.R10 = 10
	c.R11 = 11
	c.R12 = 12
	c.R13 = 13
	c.R14 = 14
	c.R15 = 15
	c.RFLAGS = 0x246
	return c
}

// activadorFake registra las activaciones y verifica que ocurran con las
// interrupciones enmascaradas.
type activadorFake struct {
	cpu        *CPUSimulada
	activados  []uuid.UUID
	err        error
	mascaradas bool
}

func (a *activadorFake) Activar(espacio uuid.UUID, pid int) error {
	a.activados = append(a.activados, espacio)
	if a.cpu != nil {
		a.mascaradas = a.cpu.Enmascaradas()
	}
	return a.err
}

func TestContextoCPU_RoundTrip(t *testing.T) {
	cpu := NewCPUSimulada()
	original := contextoDePrueba()

	// Guardar inmediatamente después de restaurar, sin ejecución en el
	// medio, reproduce el contexto bit a bit.
	cpu.Restaurar(&original)
	var recuperado ContextoCPU
	cpu.Guardar(&recuperado)

	if recuperado != original {
		t.Errorf("el contexto no sobrevivió la ida y vuelta:\n got  %+v\n want %+v", recuperado, original)
	}
}

func TestContextoCPU_Valido(t *testing.T) {
	base := contextoDePrueba()

	tests := []struct {
		name  string
		mutar func(c *ContextoCPU)
		want  bool
	}{
		{name: "contexto recién creado", mutar: func(c *ContextoCPU) {}, want: true},
		{name: "RIP cero", mutar: func(c *ContextoCPU) { c.RIP = 0 }, want: false},
		{name: "RSP cero", mutar: func(c *ContextoCPU) { c.RSP = 0 }, want: false},
		{name: "RIP no canónico", mutar: func(c *ContextoCPU) { c.RIP = 0x0008_0000_0000_0000 }, want: false},
		{name: "mitad alta canónica", mutar: func(c *ContextoCPU) { c.RIP = 0xFFFF_8000_0000_1000 }, want: true},
		{name: "borde inferior canónico", mutar: func(c *ContextoCPU) { c.RIP = 0x0000_7FFF_FFFF_FFFF }, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutar(&c)
			if got := c.Valido(); got != tt.want {
				t.Errorf("Valido() = %v, se esperaba %v", got, tt.want)
			}
		})
	}
}

func TestMotor_Intercambiar(t *testing.T) {
	cpu := NewCPUSimulada()
	activador := &activadorFake{cpu: cpu}
	motor := NewMotor(cpu, activador, log.BuildLogger("error"))

	saliendo := contextoDePrueba()
	cpu.Restaurar(&saliendo) // el proceso saliente "corre" en la CPU

	entrante := Nuevo(0x500000, 0x7FFD000, uuid.New())
	var guardado ContextoCPU
	motor.Intercambiar(&guardado, &entrante, &entrante.Espacio, 7)

	if guardado != saliendo {
		t.Errorf("el contexto saliente no se guardó completo:\n got  %+v\n want %+v", guardado, saliendo)
	}
	if registros := cpu.Registros(); registros != entrante {
		t.Errorf("la CPU no quedó con el contexto entrante:\n got  %+v\n want %+v", registros, entrante)
	}
	if len(activador.activados) != 1 || activador.activados[0] != entrante.Espacio {
		t.Errorf("activaciones = %v, se esperaba el espacio entrante", activador.activados)
	}
	if !activador.mascaradas {
		t.Error("la activación corrió con las interrupciones habilitadas")
	}
	if cpu.Enmascaradas() {
		t.Error("las interrupciones quedaron enmascaradas después del intercambio")
	}
}

func TestMotor_SinCambioDeEspacio(t *testing.T) {
	cpu := NewCPUSimulada()
	activador := &activadorFake{}
	motor := NewMotor(cpu, activador, log.BuildLogger("error"))

	entrante := Nuevo(0x500000, 0x7FFD000, uuid.New())
	var guardado ContextoCPU
	motor.Intercambiar(&guardado, &entrante, nil, 7)

	if len(activador.activados) != 0 {
		t.Errorf("se activó un espacio sin pedirlo: %v", activador.activados)
	}
}

func TestMotor_PanicContextoCorrupto(t *testing.T) {
	cpu := NewCPUSimulada()
	motor := NewMotor(cpu, &activadorFake{}, log.BuildLogger("error"))

	entrante := contextoDePrueba()
	entrante.RIP = 0x0008_0000_0000_0000 // no canónico

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("se esperaba panic ante un contexto corrupto")
		}
		if !strings.Contains(r.(string), "PID 9") {
			t.Errorf("el panic no identifica al PID ofensor: %v", r)
		}
		// El panic ocurre antes de tocar ningún registro.
		if cpu.Guardados != 0 {
			t.Error("se guardó un contexto antes de validar el entrante")
		}
	}()

	var guardado ContextoCPU
	motor.Intercambiar(&guardado, &entrante, nil, 9)
}

func TestMotor_PanicActivacionFallida(t *testing.T) {
	cpu := NewCPUSimulada()
	activador := &activadorFake{err: errors.New("espacio desconocido")}
	motor := NewMotor(cpu, activador, log.BuildLogger("error"))

	entrante := contextoDePrueba()

	defer func() {
		if recover() == nil {
			t.Fatal("se esperaba panic cuando memoria no puede activar el espacio")
		}
	}()

	var guardado ContextoCPU
	motor.Intercambiar(&guardado, &entrante, &entrante.Espacio, 3)
}
