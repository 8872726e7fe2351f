// Package auth resolves who is calling. Credentials are checked upstream by
// a proxy; this package trusts its headers only when they carry the shared
// proxy secret, and takes the caller's role from the customers table.
package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const (
	HeaderCustomerID  = "X-Customer-ID"
	HeaderProxySecret = "X-Proxy-Secret"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRole     = errors.New("role must be customer or admin")
)

type Principal struct {
	CustomerID int64  `json:"customer_id"`
	Role       string `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// Actor is the audit label recorded with status changes.
func (p Principal) Actor() string {
	return p.Role + ":" + strconv.FormatInt(p.CustomerID, 10)
}

type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

type CustomerLookup interface {
	Customer(ctx context.Context, id int64) (*models.Customer, error)
}

type HeaderAuthenticator struct {
	secret    string
	customers CustomerLookup
}

func NewHeaderAuthenticator(secret string, customers CustomerLookup) *HeaderAuthenticator {
	return &HeaderAuthenticator{secret: secret, customers: customers}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	if a.secret != "" {
		got := r.Header.Get(HeaderProxySecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.secret)) != 1 {
			return Principal{}, ErrUnauthenticated
		}
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderCustomerID)), 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, ErrUnauthenticated
	}

	customer, err := a.customers.Customer(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrCustomerNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, err
	}

	return Principal{CustomerID: customer.ID, Role: customer.Role}, nil
}

// Directory is the customers table seen from the admin surface.
type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	return store.GetCustomer(ctx, d.db, id)
}

func (d *Directory) Create(ctx context.Context, email, name, role string) (*models.Customer, error) {
	if role != "" && role != models.RoleCustomer && role != models.RoleAdmin {
		return nil, ErrInvalidRole
	}
	return store.CreateCustomer(ctx, d.db, strings.TrimSpace(email), strings.TrimSpace(name), role)
}

func (d *Directory) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListCustomers(ctx, d.db, page, pageSize)
}
