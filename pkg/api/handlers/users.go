package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/glide/pkg/registry"
)

// UsersHandler serves read-only views of the connected user roster and the
// pending offer queues. Mutations happen only over the wire protocol; the
// admin API observes.
type UsersHandler struct {
	registry *registry.Registry
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(registry *registry.Registry) *UsersHandler {
	return &UsersHandler{registry: registry}
}

// UserView is the JSON shape of one connected user.
type UserView struct {
	Handle        string    `json:"handle"`
	Addr          string    `json:"addr"`
	ConnectedAt   time.Time `json:"connected_at"`
	PendingOffers int       `json:"pending_offers"`
}

// OfferView is the JSON shape of one pending offer.
type OfferView struct {
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Filename  string    `json:"filename"`
	QueuedAt  time.Time `json:"queued_at"`
}

// List handles GET /api/v1/users - the connected user roster.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users := h.registry.Users()

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{
			Handle:        u.Handle,
			Addr:          u.Addr,
			ConnectedAt:   u.Connected,
			PendingOffers: len(u.Offers),
		})
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"count": len(views),
		"users": views,
	}))
}

// Offers handles GET /api/v1/offers - all pending offers across users.
func (h *UsersHandler) Offers(w http.ResponseWriter, r *http.Request) {
	users := h.registry.Users()

	views := make([]OfferView, 0)
	for _, u := range users {
		for _, o := range u.Offers {
			views = append(views, OfferView{
				Recipient: u.Handle,
				Sender:    o.From,
				Filename:  o.Filename,
				QueuedAt:  o.Queued,
			})
		}
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"count":  len(views),
		"offers": views,
	}))
}
