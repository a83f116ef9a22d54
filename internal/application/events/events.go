// Package events publica eventos de dominio del motor de solicitudes y transferencias.
// La entrega y el formato de notificaciones quedan fuera; aquí solo se emiten.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// Type tipo de evento de dominio.
type Type string

// Tipos de evento.
const (
	RequestCreated   Type = "request_created"
	RequestApproved  Type = "request_approved"
	RequestDenied    Type = "request_denied"
	StockTransferred Type = "stock_transferred"
)

// Event evento emitido tras confirmar la unidad de trabajo.
type Event struct {
	Type     Type
	Actor    string
	At       time.Time
	Request  *entity.Request  // request_* (copia del estado confirmado)
	Movement *entity.Movement // stock_transferred
}

// Publisher puerto de publicación de eventos.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Subscriber recibe eventos publicados en el Bus.
type Subscriber func(ctx context.Context, ev Event)

// Bus publicador en memoria que reparte cada evento a todos los suscriptores, en orden.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus construye un bus vacío.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registra un suscriptor.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Publish entrega el evento de forma síncrona.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, s := range subs {
		s(ctx, ev)
	}
}

// Recorder suscriptor que guarda los eventos; útil en tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle implementa Subscriber.
func (r *Recorder) Handle(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events devuelve una copia de los eventos recibidos.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filtra los eventos recibidos por tipo.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
