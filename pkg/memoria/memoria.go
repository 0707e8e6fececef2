package memoria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

// Memoria es el cliente HTTP del módulo de memoria. El núcleo solo necesita
// dos cosas de memoria: activar el espacio de direcciones entrante durante
// el cambio de contexto y liberar el espacio de un proceso ya limpiado.
type Memoria struct {
	IP     string
	Puerto int
	Log    *slog.Logger
}

func NewMemoria(ip string, puerto int, logger *slog.Logger) *Memoria {
	return &Memoria{
		IP:     ip,
		Puerto: puerto,
		Log:    logger,
	}
}

type solicitudActivar struct {
	Espacio string `json:"espacio"`
	PID     int    `json:"pid"`
}

// Activar le pide a memoria que active el espacio de direcciones. Lo invoca
// el motor de contexto entre el guardado y la restauración, así que acá solo
// se informa el error: decidir qué hacer con él es problema del motor.
func (m *Memoria) Activar(espacio uuid.UUID, pid int) error {
	body, err := json.Marshal(solicitudActivar{Espacio: espacio.String(), PID: pid})
	if err != nil {
		return fmt.Errorf("error codificando la solicitud de activación: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/nucleo/activar-espacio", m.IP, m.Puerto)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error enviando la activación a memoria: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("memoria rechazó la activación del espacio: %s", resp.Status)
	}

	m.Log.Debug("Espacio de direcciones activado",
		log.IntAttr("pid", pid),
		log.StringAttr("espacio", espacio.String()))
	return nil
}

// Finalizar notifica a memoria que el proceso fue limpiado para que libere
// su espacio. Devuelve false si memoria no confirmó.
func (m *Memoria) Finalizar(pid int) bool {
	body, err := json.Marshal(map[string]int{"pid": pid})
	if err != nil {
		m.Log.Error("Error codificando la finalización", log.ErrAttr(err))
		return false
	}

	url := fmt.Sprintf("http://%s:%d/nucleo/finalizar-proceso", m.IP, m.Puerto)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		m.Log.Error("Error notificando la finalización a memoria",
			log.IntAttr("pid", pid),
			log.ErrAttr(err))
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode == http.StatusOK
}
