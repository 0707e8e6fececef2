package uniqueid

import (
	"errors"
	"sync"
)

var ErrAgotado = errors.New("no quedan IDs disponibles")

// UniqueID asigna identificadores monotónicos. Los IDs nunca se reutilizan:
// una vez entregado un valor, el asignador no vuelve a producirlo aunque el
// dueño original haya muerto.
type UniqueID struct {
	mu     sync.Mutex
	nextID int
	maxID  int
}

func Init(max int) *UniqueID {
	return &UniqueID{
		nextID: 1, // El primer ID es 1: el 0 queda reservado como "sin proceso"
		maxID:  max,
	}
}

func (u *UniqueID) GetUniqueID() (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.nextID > u.maxID {
		return 0, ErrAgotado
	}

	id := u.nextID
	u.nextID++
	return id, nil
}
