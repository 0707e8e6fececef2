package contexto

import "sync"

// CPUSimulada es el backend de software de OperacionesContexto: un banco de
// registros en memoria más la máscara de interrupciones. Sirve como doble de
// prueba del hardware y como backend del núcleo cuando corre sin una CPU
// real por detrás.
type CPUSimulada struct {
	mu         sync.Mutex
	registros  ContextoCPU
	mascaradas bool

	// Contadores de diagnóstico.
	Guardados      int
	Restauraciones int
}

func NewCPUSimulada() *CPUSimulada {
	return &CPUSimulada{}
}

func (c *CPUSimulada) Guardar(destino *ContextoCPU) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*destino = c.registros
	c.Guardados++
}

func (c *CPUSimulada) Restaurar(fuente *ContextoCPU) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registros = *fuente
	c.Restauraciones++
}

func (c *CPUSimulada) EnmascararInterrupciones() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mascaradas = true
}

func (c *CPUSimulada) DesenmascararInterrupciones() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mascaradas = false
}

// Enmascaradas expone la máscara para los tests del motor.
func (c *CPUSimulada) Enmascaradas() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mascaradas
}

// Registros devuelve una copia del banco de registros actual.
func (c *CPUSimulada) Registros() ContextoCPU {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registros
}
