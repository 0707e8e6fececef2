package contexto

import "github.com/google/uuid"

// Selectores de segmento según el GDT del núcleo.
const (
	SelectorCodigoKernel uint16 = 0x08
	SelectorDatosKernel  uint16 = 0x10
	SelectorCodigoUser   uint16 = 0x1B
	SelectorDatosUser    uint16 = 0x23

	// RFLAGS inicial: bit reservado 1 + interrupciones habilitadas (IF).
	FlagsIniciales uint64 = 0x202
)

// ContextoCPU es la foto completa de los registros necesarios para reanudar
// un hilo de ejecución. Es un struct comparable a propósito: la propiedad de
// ida y vuelta (guardar y restaurar sin ejecutar en el medio devuelve el
// contexto bit a bit) se verifica con ==.
type ContextoCPU struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP, RSP uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64

	RIP    uint64
	RFLAGS uint64

	CS, SS, DS  uint16
	ModoUsuario bool

	// Espacio es el handle opaco del espacio de direcciones. El núcleo nunca
	// lo interpreta: solo se lo pasa a memoria al activar.
	Espacio uuid.UUID
}

// Nuevo arma el contexto inicial de un proceso recién creado, apuntando a su
// entry point con el stack indicado.
func Nuevo(entryPoint, stackPointer uint64, espacio uuid.UUID) ContextoCPU {
	return ContextoCPU{
		RIP:         entryPoint,
		RSP:         stackPointer,
		RBP:         stackPointer,
		RFLAGS:      FlagsIniciales,
		CS:          SelectorCodigoUser,
		SS:          SelectorDatosUser,
		DS:          SelectorDatosUser,
		ModoUsuario: true,
		Espacio:     espacio,
	}
}

// Valido verifica que el contexto sea un destino de restauración aceptable:
// RIP canónico y no nulo, stack no nulo. Un contexto que no pasa este chequeo
// jamás debe llegar al motor.
func (c *ContextoCPU) Valido() bool {
	if c.RIP == 0 || c.RSP == 0 {
		return false
	}
	return esCanonica(c.RIP)
}

// esCanonica chequea la forma canónica de una dirección de 64 bits: los bits
// 63..47 deben ser todos 0 o todos 1.
func esCanonica(dir uint64) bool {
	const mitadAlta = 0xFFFF800000000000
	superior := dir & mitadAlta
	return superior == 0 || superior == mitadAlta
}
