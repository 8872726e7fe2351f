package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup map[int64]*models.Customer

func (f fakeLookup) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	if c, ok := f[id]; ok {
		return c, nil
	}
	return nil, models.ErrCustomerNotFound
}

type brokenLookup struct{}

func (brokenLookup) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	return nil, errors.New("db down")
}

var customers = fakeLookup{
	1: {ID: 1, Role: models.RoleCustomer},
	2: {ID: 2, Role: models.RoleAdmin},
}

func request(id, secret string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != "" {
		r.Header.Set(HeaderCustomerID, id)
	}
	if secret != "" {
		r.Header.Set(HeaderProxySecret, secret)
	}
	return r
}

func TestHeaderAuthenticator(t *testing.T) {
	a := NewHeaderAuthenticator("s3cret", customers)

	p, err := a.Authenticate(request("1", "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, Principal{CustomerID: 1, Role: models.RoleCustomer}, p)
	assert.Equal(t, "customer:1", p.Actor())

	p, err = a.Authenticate(request("2", "s3cret"))
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	for _, r := range []*http.Request{
		request("1", "wrong"),
		request("1", ""),
		request("", "s3cret"),
		request("abc", "s3cret"),
		request("-4", "s3cret"),
		request("99", "s3cret"),
	} {
		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestHeaderAuthenticatorWithoutSecret(t *testing.T) {
	a := NewHeaderAuthenticator("", customers)
	_, err := a.Authenticate(request("1", ""))
	assert.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	a := NewHeaderAuthenticator("s3cret", customers)
	authed := router.Group("/", RequireCustomer(a))
	authed.GET("/me", func(c *gin.Context) {
		p, _ := FromContext(c)
		c.JSON(http.StatusOK, p)
	})
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		path string
		id   string
		want int
	}{
		{"/me", "1", http.StatusOK},
		{"/me", "", http.StatusUnauthorized},
		{"/admin", "1", http.StatusForbidden},
		{"/admin", "2", http.StatusNoContent},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		r := request(tt.id, "s3cret")
		r.URL.Path = tt.path
		router.ServeHTTP(w, r)
		assert.Equal(t, tt.want, w.Code, "%s as %q", tt.path, tt.id)
	}
}

func TestMiddlewareLookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/me", RequireCustomer(NewHeaderAuthenticator("", brokenLookup{})), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r := request("1", "")
	r.URL.Path = "/me"
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
