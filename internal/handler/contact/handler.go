package contact

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agendalink/server/internal/middleware"
	"github.com/agendalink/server/internal/model/contact"
	"github.com/agendalink/server/internal/model/user"
	"github.com/agendalink/server/internal/store"
	"github.com/agendalink/server/pkg/utils"
)

// Handler serves the agenda CRUD endpoints.
type Handler struct {
	store *store.Store
}

// New creates the contact handler.
func New(st *store.Store) *Handler {
	return &Handler{store: st}
}

// RegisterRoutes mounts the contact routes. The caller wraps them with the
// auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/contacts", h.handleList)
	r.Post("/contacts", h.handleCreate)
	r.Get("/contacts/{id}", h.handleGet)
	r.Put("/contacts/{id}", h.handleUpdate)
	r.Delete("/contacts/{id}", h.handleDelete)
	r.Post("/contacts/{id}/interaction", h.handleInteraction)
}

type contactPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Category    string `json:"category"`
	SpecialDate string `json:"specialDate"`
}

// validate applies the shared field rules. Phones are Mozambican: +258
// followed by nine digits.
func (p contactPayload) validate() (string, bool) {
	switch {
	case p.Name == "":
		return "Nome é obrigatório", false
	case p.Phone == "":
		return "Telefone é obrigatório", false
	case p.Category == "":
		return "Categoria é obrigatória", false
	case !strings.HasPrefix(p.Phone, "+258") || len(strings.TrimPrefix(p.Phone, "+258")) != 9:
		return "Telefone deve começar com +258 e ter 9 dígitos", false
	default:
		return "", true
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	contacts, err := h.store.ListContacts(r.Context(), identity.ID, identity.Role == user.RoleAdmin)
	if err != nil {
		log.Printf("[contact] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao carregar contatos")
		return
	}
	if contacts == nil {
		contacts = []contact.Contact{}
	}
	utils.RespondJSON(w, http.StatusOK, contacts)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var payload contactPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if msg, ok := payload.validate(); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.store.CreateContact(r.Context(), contact.Contact{
		UserID:      identity.ID,
		Name:        payload.Name,
		Phone:       payload.Phone,
		Email:       payload.Email,
		Category:    payload.Category,
		SpecialDate: payload.SpecialDate,
	})
	if err != nil {
		log.Printf("[contact] create failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao adicionar contato")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "contact": created})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	found, err := h.store.GetContact(r.Context(), id, identity.ID, identity.Role == user.RoleAdmin)
	if err != nil {
		if errors.Is(err, store.ErrContactNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Contato não encontrado")
			return
		}
		log.Printf("[contact] get failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao carregar contato")
		return
	}
	utils.RespondJSON(w, http.StatusOK, found)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	var payload contactPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if msg, ok := payload.validate(); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.store.UpdateContact(r.Context(), contact.Contact{
		ID:          id,
		Name:        payload.Name,
		Phone:       payload.Phone,
		Email:       payload.Email,
		Category:    payload.Category,
		SpecialDate: payload.SpecialDate,
	}, identity.ID, identity.Role == user.RoleAdmin)
	if err != nil {
		if errors.Is(err, store.ErrContactNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Contato não encontrado")
			return
		}
		log.Printf("[contact] update failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao atualizar contato")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "contact": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	err := h.store.DeleteContact(r.Context(), id, identity.ID, identity.Role == user.RoleAdmin)
	if err != nil {
		if errors.Is(err, store.ErrContactNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Contato não encontrado")
			return
		}
		log.Printf("[contact] delete failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao excluir contato")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Contato excluído"})
}

func (h *Handler) handleInteraction(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	// Visibility check first so one user cannot bump another's counters.
	if _, err := h.store.GetContact(r.Context(), id, identity.ID, identity.Role == user.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrContactNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Contato não encontrado")
			return
		}
		log.Printf("[contact] interaction lookup failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao registrar interação")
		return
	}

	if err := h.store.RecordInteraction(r.Context(), id); err != nil {
		log.Printf("[contact] interaction failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao registrar interação")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
