package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestGetOrCreateUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProvider(Config{})

	t.Run("Given no cookie When asked Then a new id is issued and set", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		id := p.GetOrCreateUserID(c)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("id %q is not a uuid", id)
		}

		cookies := w.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != id || !cookies[0].HttpOnly {
			t.Errorf("unexpected cookies %+v", cookies)
		}
	})

	t.Run("Given existing cookie When asked Then the same id comes back", func(t *testing.T) {
		existing := uuid.NewString()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: existing})

		if got := p.GetOrCreateUserID(c); got != existing {
			t.Errorf("expected %s, got %s", existing, got)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("cookie rewritten for a known user")
		}
	})

	t.Run("Given tampered cookie When asked Then it is replaced", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: "admin"})

		if got := p.GetOrCreateUserID(c); got == "admin" {
			t.Error("tampered id accepted")
		}
	})
}
