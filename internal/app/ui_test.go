package app

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vendo-client/internal/catalog"
	"github.com/xenking/vendo-client/internal/domain/product"
	"github.com/xenking/vendo-client/internal/domain/user"
	"github.com/xenking/vendo-client/internal/session"
	"github.com/xenking/vendo-client/pkg/notify"
)

// mockVendo plays the remote service for both state components.
type mockVendo struct {
	loggedIn bool
	user     user.User
	products []product.Product
	receipt  product.Receipt
	buyErr   error
}

func (m *mockVendo) CurrentUser(_ context.Context) (user.User, error) {
	if !m.loggedIn {
		return user.User{}, errors.New("unauthenticated")
	}
	return m.user, nil
}

func (m *mockVendo) Login(_ context.Context, creds user.Credentials) (user.User, error) {
	if creds.Password != "pw" {
		return user.User{}, errors.New("invalid credentials")
	}
	m.loggedIn = true
	return m.user, nil
}

func (m *mockVendo) Register(_ context.Context, _ user.Credentials) (user.User, error) {
	m.loggedIn = true
	return m.user, nil
}

func (m *mockVendo) Logout(_ context.Context) error {
	m.loggedIn = false
	return nil
}

func (m *mockVendo) Deposit(_ context.Context, denomination int64) (int64, error) {
	m.user.Deposit += denomination
	return m.user.Deposit, nil
}

func (m *mockVendo) ResetDeposit(_ context.Context) ([]int64, error) {
	m.user.Deposit = 0
	return []int64{20, 5}, nil
}

func (m *mockVendo) ListProducts(_ context.Context) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockVendo) CreateProduct(_ context.Context, p product.Payload) (product.Product, error) {
	created := product.Product{ID: 99, Name: p.Name, Cost: p.Cost, Available: p.Available}
	m.products = append(m.products, created)
	return created, nil
}

func (m *mockVendo) UpdateProduct(_ context.Context, id int64, p product.Payload) (product.Product, error) {
	return product.Product{ID: id, Name: p.Name, Cost: p.Cost, Available: p.Available}, nil
}

func (m *mockVendo) DeleteProduct(_ context.Context, _ int64) error {
	return nil
}

func (m *mockVendo) Buy(_ context.Context, _ int64, _ int) (product.Receipt, error) {
	if m.buyErr != nil {
		return product.Receipt{}, m.buyErr
	}
	m.user.Deposit -= m.receipt.Spent
	return m.receipt, nil
}

func runScript(t *testing.T, svc *mockVendo, lines ...string) (string, *session.State, *catalog.State) {
	t.Helper()

	sessions := session.NewState(svc)
	products := catalog.NewState(svc)
	require.NoError(t, sessions.Resolve(context.Background()))
	// Initial catalog load failures are tolerated at startup.
	_ = products.Refresh(context.Background())

	var out bytes.Buffer
	ui := NewUI(
		bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")+"\n")),
		&out,
		sessions,
		products,
		notify.NewConsole(&out),
	)
	require.NoError(t, ui.Loop(context.Background()))
	return out.String(), sessions, products
}

func TestUI_BuyerFlow(t *testing.T) {
	svc := &mockVendo{
		user: user.User{Username: "alice", Role: user.RoleBuyer, Deposit: 0},
		products: []product.Product{
			{ID: 1, Name: "Soda", Cost: 50, Available: 3},
		},
		receipt: product.Receipt{Spent: 100, ProductName: "Soda", Change: []int64{}},
	}

	out, sessions, products := runScript(t, svc,
		"1", "alice", "pw", // login
		"2", "50", // deposit a coin
		"2", "50", // and another one
		"3", "1", "2", // buy two sodas
		"4",      // return the remaining deposit
		"0", "0", // logout, quit
	)

	assert.Contains(t, out, "Welcome back, alice!")
	assert.Contains(t, out, "You successfully deposited 50 cents")
	assert.Contains(t, out, "Thank you for buying Soda for 100 cents")
	assert.Contains(t, out, "Your change: 20 Cents, 5 Cents.")
	assert.Contains(t, out, "Logged out")

	assert.False(t, sessions.Snapshot().Authenticated())
	p, ok := products.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, p.Available)
}

func TestUI_SellerFlow(t *testing.T) {
	svc := &mockVendo{
		user: user.User{Username: "carol", Role: user.RoleSeller},
		products: []product.Product{
			{ID: 1, Name: "Soda", Cost: 50, Available: 3},
		},
	}

	out, _, products := runScript(t, svc,
		"2", "carol", "pw", // sign-up
		"2", "Chips", "85", "10", // add product
		"4", "1", // delete product 1
		"0", "0", // logout, quit
	)

	assert.Contains(t, out, `Product "Chips" added successfully`)
	assert.Contains(t, out, `Product "Soda" deleted successfully`)

	_, ok := products.Get(1)
	assert.False(t, ok)
	_, ok = products.Get(99)
	assert.True(t, ok)
}

func TestUI_FailedLoginShowsMessage(t *testing.T) {
	svc := &mockVendo{user: user.User{Username: "alice", Role: user.RoleBuyer}}

	out, sessions, _ := runScript(t, svc,
		"1", "alice", "nope", // wrong password
		"0", // quit
	)

	assert.Contains(t, out, "invalid credentials")
	assert.False(t, sessions.Snapshot().Authenticated())
}

func TestUI_FailedBuyLeavesCatalog(t *testing.T) {
	svc := &mockVendo{
		user: user.User{Username: "alice", Role: user.RoleBuyer, Deposit: 10},
		products: []product.Product{
			{ID: 1, Name: "Soda", Cost: 50, Available: 3},
		},
		buyErr: errors.New("insufficient funds"),
	}

	out, _, products := runScript(t, svc,
		"1", "alice", "pw",
		"3", "1", "1", // buy fails remotely
		"0", "0",
	)

	assert.Contains(t, out, "insufficient funds")
	p, ok := products.Get(1)
	require.True(t, ok)
	assert.Equal(t, 3, p.Available)
}
