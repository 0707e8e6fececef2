package api

// Config es la configuración del núcleo, cargada del config.json.
type Config struct {
	IpMemory   string   `json:"ip_memory"`
	PortMemory int      `json:"port_memory"`
	IpNucleo   string   `json:"ip_nucleo"`
	PortNucleo int      `json:"port_nucleo"`
	Algoritmo  string   `json:"scheduler_algorithm"`
	Alpha      float64  `json:"alpha"`
	MaxSaltos  int      `json:"max_saltos"`
	QuantumMs  int      `json:"quantum_ms"`
	Cpus       []string `json:"cpus"`
	MaxPid     int      `json:"max_pid"`
	ModoDebug  bool     `json:"modo_debug"`
	LogLevel   string   `json:"log_level"`
}

type CrearProcesoRequest struct {
	EntryPoint   uint64   `json:"entry_point"`
	StackPointer uint64   `json:"stack_pointer"`
	Padre        int      `json:"padre,omitempty"`
	Afinidad     *float64 `json:"afinidad,omitempty"`
}

type CrearProcesoResponse struct {
	PID int `json:"pid"`
}

type FinalizarProcesoRequest struct {
	PID          int `json:"pid"`
	CodigoSalida int `json:"codigo_salida"`
}

type ProcesoPIDRequest struct {
	PID int `json:"pid"`
}

type PrioridadRequest struct {
	PID       int `json:"pid"`
	Prioridad int `json:"prioridad"`
}

type AfinidadRequest struct {
	PID   int     `json:"pid"`
	Delta float64 `json:"delta"`
}

type AfinidadResponse struct {
	PID      int     `json:"pid"`
	Afinidad float64 `json:"afinidad"`
}

type InterrupcionRequest struct {
	Core string `json:"core"`
}

type YieldRequest struct {
	Core     string   `json:"core"`
	Feedback *float64 `json:"feedback,omitempty"`
}

type LimpiezaResponse struct {
	Limpiados []int `json:"limpiados"`
}

type ProcesoActualResponse struct {
	Core string `json:"core"`
	PID  int    `json:"pid"` // 0 = core idle
}
