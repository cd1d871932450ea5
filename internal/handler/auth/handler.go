package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	authservice "github.com/agendalink/server/internal/auth"
	"github.com/agendalink/server/internal/model/user"
	"github.com/agendalink/server/internal/store"
	"github.com/agendalink/server/pkg/utils"
)

// Handler serves credential endpoints: login, register, forgot-password.
type Handler struct {
	store  *store.Store
	tokens *authservice.TokenService
}

// New creates the auth handler.
func New(st *store.Store, tokens *authservice.TokenService) *Handler {
	return &Handler{store: st, tokens: tokens}
}

// RegisterRoutes mounts the public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/forgot-password", h.handleForgotPassword)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if payload.Name == "" {
		utils.RespondError(w, http.StatusBadRequest, "O campo Nome é obrigatório")
		return
	}
	if payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "O campo Senha é obrigatório")
		return
	}
	if payload.Role == "" {
		utils.RespondError(w, http.StatusBadRequest, "O campo Função é obrigatório")
		return
	}

	account, err := h.store.GetUserByName(r.Context(), payload.Name)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Printf("[auth] login lookup failed: %v", err)
		}
		utils.RespondError(w, http.StatusUnauthorized, "Credenciais ou função inválidas")
		return
	}

	if string(account.Role) != payload.Role ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(payload.Password)) != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Credenciais ou função inválidas")
		return
	}

	token, err := h.tokens.Mint(account.Identity())
	if err != nil {
		log.Printf("[auth] mint token failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao processar login")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    account.Identity(),
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("[auth] hash password failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao processar registro")
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
		log.Printf("[auth] create user failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao processar registro")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Usuário registrado com sucesso",
	})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if payload.Email == "" {
		utils.RespondError(w, http.StatusBadRequest, "Email é obrigatório")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), payload.Email); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Email não encontrado")
			return
		}
		log.Printf("[auth] forgot-password lookup failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Erro ao processar recuperação")
		return
	}

	// Recovery mail is simulated; no mailer is wired up.
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Link de recuperação enviado (simulado)",
	})
}

// validateAccount applies the shared field rules for register and admin add.
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
