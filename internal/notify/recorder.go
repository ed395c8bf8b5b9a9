package notify

import (
	"context"
	"sync"
)

// Recorder guarda los mensajes en memoria. Útil en tests y en dev para
// leer tokens sin SMTP.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	// Err, si no es nil, se devuelve en cada Notify (el mensaje se guarda igual).
	Err error
}

func (r *Recorder) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := msg
	cp.Params = make(map[string]string, len(msg.Params))
	for k, v := range msg.Params {
		cp.Params[k] = v
	}
	r.msgs = append(r.msgs, cp)
	return r.Err
}

// Messages retorna una copia de lo recibido.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last retorna el último mensaje con ese template (ok=false si no hay).
func (r *Recorder) Last(templateKey string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].TemplateKey == templateKey {
			return r.msgs[i], true
		}
	}
	return Message{}, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
