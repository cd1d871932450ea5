package user

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/agendalink/server/internal/middleware"
	"github.com/agendalink/server/internal/model/user"
	"github.com/agendalink/server/internal/store"
	"github.com/agendalink/server/pkg/utils"
)

// Handler serves the administrator-only account endpoints.
type Handler struct {
	store *store.Store
}

// New creates the user admin handler.
func New(st *store.Store) *Handler {
	return &Handler{store: st}
}

// RegisterRoutes mounts the user routes. The caller wraps them with the auth
// and admin middlewares.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Post("/users", h.handleCreate)
	r.Delete("/users/{id}", h.handleDelete)
	r.Put("/users/{id}/role", h.handleUpdateRole)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[user] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao carregar usuários")
		return
	}
	if users == nil {
		users = []user.User{}
	}
	utils.RespondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		Date        string `json:"date"`
		SpecialDate string `json:"specialDate"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if msg, ok := validateAccount(payload.Name, payload.Email, payload.Password, payload.Date, payload.SpecialDate, payload.Role); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[user] hash password failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao adicionar usuário")
		return
	}

	_, err = h.store.CreateUser(r.Context(), user.User{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: string(hash),
		BirthDate:    payload.Date,
		SpecialDate:  payload.SpecialDate,
		Role:         user.Role(payload.Role),
	})
	switch {
	case errors.Is(err, store.ErrNameTaken):
		utils.RespondError(w, http.StatusBadRequest, "Nome já registrado")
		return
	case errors.Is(err, store.ErrEmailTaken):
		utils.RespondError(w, http.StatusBadRequest, "Email já registrado")
		return
	case err != nil:
		log.Printf("[user] create failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao adicionar usuário")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Usuário adicionado com sucesso",
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if id == identity.ID {
		utils.RespondError(w, http.StatusBadRequest, "Não pode excluir a própria conta")
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Usuário não encontrado")
			return
		}
		log.Printf("[user] delete failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao excluir usuário")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Usuário excluído"})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if !user.Role(payload.Role).Valid() {
		utils.RespondError(w, http.StatusBadRequest, "Função inválida")
		return
	}
	if id == identity.ID {
		utils.RespondError(w, http.StatusBadRequest, "Não pode alterar a própria função")
		return
	}

	if err := h.store.UpdateUserRole(r.Context(), id, user.Role(payload.Role)); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Usuário não encontrado")
			return
		}
		log.Printf("[user] update role failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao atualizar função")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Função atualizada"})
}

// validateAccount applies the account field rules for admin-created users.
func validateAccount(name, email, password, date, specialDate, role string) (string, bool) {
	switch {
	case name == "":
		return "O campo Nome é obrigatório", false
	case email == "":
		return "O campo Email é obrigatório", false
	case !strings.Contains(email, "@"):
		return "Email inválido", false
	case password == "":
		return "O campo Senha é obrigatório", false
	case len(password) < 6:
		return "A senha deve ter pelo menos 6 caracteres", false
	case date == "":
		return "O campo Data de Nascimento é obrigatório", false
	case specialDate == "":
		return "O campo Data Especial é obrigatório", false
	case !user.Role(role).Valid():
		return "Função inválida", false
	default:
		return "", true
	}
}
