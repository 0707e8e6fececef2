package api

import (
	"log/slog"

	"github.com/sisoputnfrba/tp-golang/nucleo/internal/contexto"
	"github.com/sisoputnfrba/tp-golang/nucleo/internal/planificador"
	"github.com/sisoputnfrba/tp-golang/nucleo/internal/proceso"
	"github.com/sisoputnfrba/tp-golang/nucleo/pkg/memoria"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/config"
	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

type Handler struct {
	Log          *slog.Logger
	Config       *Config
	Tabla        *proceso.TablaProcesos
	Planificador *planificador.Service
}

func NewHandler(configFile string) *Handler {
	c := config.IniciarConfiguracion(configFile, &Config{})
	if c == nil {
		panic("Error loading configuration")
	}

	// Cast the configuration to the specific type
	configStruct, ok := c.(*Config)
	if !ok {
		panic("Error casting configuration")
	}

	logger := log.BuildLogger(configStruct.LogLevel)

	mem := memoria.NewMemoria(configStruct.IpMemory, configStruct.PortMemory, logger)
	tabla := proceso.NewTabla(configStruct.MaxPid, logger)

	// Un banco de registros por core: los contextos de un core nunca pasan
	// por el banco de otro.
	motores := make(map[string]*contexto.MotorContexto, len(configStruct.Cpus))
	for _, core := range configStruct.Cpus {
		motores[core] = contexto.NewMotor(contexto.NewCPUSimulada(), mem, logger)
	}

	return &Handler{
		Config: configStruct,
		Log:    logger,
		Tabla:  tabla,
		Planificador: planificador.NewPlanificador(tabla, motores, mem, logger, planificador.Config{
			Algoritmo: configStruct.Algoritmo,
			Alpha:     configStruct.Alpha,
			MaxSaltos: configStruct.MaxSaltos,
			Cores:     configStruct.Cpus,
			ModoDebug: configStruct.ModoDebug,
		}),
	}
}
