package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
)

// Identity headers.
const (
	SessionHeader = "X-Cart-Session"
	UserHeader    = "X-User-ID"
	APIKeyHeader  = "api_key"

	DefaultSessionCookie = "shopflow_cart"
)

var (
	errForbidden    = errors.New("api key may not act on behalf of users")
	errUserRequired = errors.New("an authenticated user is required")
	errSessionClash = errors.New("guest session does not match the caller session")
)

// owner resolves the cart owner of r. A user ID is honoured only when the
// request carries a gateway API key with the act-as-user scope. Anonymous
// requests get a guest session, minted on first use.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (cart.Owner, error) {
	if userID := strings.TrimSpace(r.Header.Get(UserHeader)); userID != "" {
		info, err := h.auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			return cart.Owner{}, err
		}
		if !info.HasScope(auth.ScopeActAsUser) {
			return cart.Owner{}, errForbidden
		}
		return cart.UserOwner(userID), nil
	}

	id, ok := h.guestSession(r)
	if !ok {
		id = uuid.NewString()
		h.setSession(w, id)
	}
	return cart.GuestOwner(id), nil
}

// guestSession returns the session ID from the header or the cookie. Values
// that are not UUIDs are ignored. Session IDs are random v4 UUIDs and act as
// bearer secrets: whoever holds one controls that guest cart.
func (h *Handler) guestSession(r *http.Request) (string, bool) {
	candidates := []string{r.Header.Get(SessionHeader)}
	if c, err := r.Cookie(h.cfg.SessionCookie); err == nil {
		candidates = append(candidates, c.Value)
	}
	for _, v := range candidates {
		if id, err := uuid.Parse(strings.TrimSpace(v)); err == nil {
			return id.String(), true
		}
	}
	return "", false
}

func (h *Handler) setSession(w http.ResponseWriter, id string) {
	w.Header().Set(SessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) expireSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
