package memoria

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"

	"github.com/sisoputnfrba/tp-golang/nucleo/utils/log"
)

func TestMemoria_Activar(t *testing.T) {
	m := NewMemoria("127.0.0.1", 8002, log.BuildLogger("debug"))
	httpmock.Activate(t)
	defer httpmock.DeactivateAndReset()

	espacio := uuid.New()

	tests := []struct {
		name    string
		expects func(m *Memoria)
		wantErr bool
	}{
		{
			name: "memoria activa el espacio",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/activar-espacio", m.IP, m.Puerto),
					httpmock.NewStringResponder(200, `{"mensaje":"espacio activado"}`),
				)
			},
			wantErr: false,
		},
		{
			name: "memoria rechaza el espacio",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/activar-espacio", m.IP, m.Puerto),
					httpmock.NewStringResponder(404, `{"mensaje":"espacio desconocido"}`),
				)
			},
			wantErr: true,
		},
		{
			name: "error de conexión con memoria",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/activar-espacio", m.IP, m.Puerto),
					httpmock.NewErrorResponder(fmt.Errorf("error al conectar con memoria")),
				)
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expects(m)
			if err := m.Activar(espacio, 1); (err != nil) != tt.wantErr {
				t.Errorf("Activar() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoria_Finalizar(t *testing.T) {
	m := NewMemoria("127.0.0.1", 8002, log.BuildLogger("debug"))
	httpmock.Activate(t)
	defer httpmock.DeactivateAndReset()

	tests := []struct {
		name    string
		expects func(m *Memoria)
		want    bool
	}{
		{
			name: "memoria libera el espacio",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/finalizar-proceso", m.IP, m.Puerto),
					httpmock.NewStringResponder(200, `{"mensaje":"proceso finalizado"}`),
				)
			},
			want: true,
		},
		{
			name: "memoria no confirma",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/finalizar-proceso", m.IP, m.Puerto),
					httpmock.NewStringResponder(400, `{"mensaje":"proceso desconocido"}`),
				)
			},
			want: false,
		},
		{
			name: "error de conexión con memoria",
			expects: func(m *Memoria) {
				httpmock.RegisterResponder(
					"POST",
					fmt.Sprintf("http://%s:%d/nucleo/finalizar-proceso", m.IP, m.Puerto),
					httpmock.NewErrorResponder(fmt.Errorf("error al conectar con memoria")),
				)
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expects(m)
			if got := m.Finalizar(1); got != tt.want {
				t.Errorf("Finalizar() = %v, want %v", got, tt.want)
			}
		})
	}
}
