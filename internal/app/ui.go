package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vendo-client/internal/catalog"
	"github.com/xenking/vendo-client/internal/client"
	"github.com/xenking/vendo-client/internal/domain/product"
	"github.com/xenking/vendo-client/internal/domain/user"
	"github.com/xenking/vendo-client/internal/session"
	"github.com/xenking/vendo-client/pkg/notify"
)

// UI is the interactive terminal front-end. It only reads state snapshots
// and invokes the state components' operations; all reconciliation with the
// server happens inside those components. While a menu action is running its
// remote call, the UI is blocked on that call, which serializes
// user-initiated mutations the same way the original front-end disabled its
// buttons.
type UI struct {
	in       *bufio.Reader
	out      io.Writer
	sessions *session.State
	products *catalog.State
	notifier notify.Notifier
}

// NewUI wires a UI over the given state components.
func NewUI(
	in *bufio.Reader,
	out io.Writer,
	sessions *session.State,
	products *catalog.State,
	notifier notify.Notifier,
) *UI {
	return &UI{
		in:       in,
		out:      out,
		sessions: sessions,
		products: products,
		notifier: notifier,
	}
}

// Loop drives the menu until the user quits, input ends, or ctx is done.
func (ui *UI) Loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap := ui.sessions.Snapshot()
		var (
			quit bool
			err  error
		)
		if snap.Authenticated() {
			err = ui.mainMenu(ctx, snap.User)
		} else {
			quit, err = ui.welcomeMenu(ctx)
		}
		if errors.Is(err, io.EOF) || quit {
			fmt.Fprintln(ui.out, "Bye!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (ui *UI) welcomeMenu(ctx context.Context) (quit bool, err error) {
	fmt.Fprintln(ui.out, "\n=== VENDO ===")
	fmt.Fprintln(ui.out, "1) Login")
	fmt.Fprintln(ui.out, "2) Sign-up")
	fmt.Fprintln(ui.out, "3) Browse products")
	fmt.Fprintln(ui.out, "0) Quit")

	choice, err := ui.readLine("> ")
	if err != nil {
		return false, err
	}
	switch choice {
	case "1":
		return false, ui.handleAuth(ctx, ui.sessions.Login, "Welcome back, %s!")
	case "2":
		return false, ui.handleAuth(ctx, ui.sessions.Register, "Account created. Welcome, %s!")
	case "3":
		return false, ui.handleListProducts(ctx, false)
	case "0":
		return true, nil
	default:
		return false, nil
	}
}

func (ui *UI) mainMenu(ctx context.Context, u user.User) error {
	fmt.Fprintf(ui.out, "\n=== VENDO: %s (%s) ===\n", u.Username, u.Role)
	if u.Role == user.RoleSeller {
		return ui.sellerMenu(ctx)
	}
	return ui.buyerMenu(ctx, u)
}

func (ui *UI) buyerMenu(ctx context.Context, u user.User) error {
	fmt.Fprintf(ui.out, "You have %d cents.\n", u.Deposit)
	fmt.Fprintln(ui.out, "1) Products")
	fmt.Fprintln(ui.out, "2) Deposit a coin")
	fmt.Fprintln(ui.out, "3) Buy")
	fmt.Fprintln(ui.out, "4) Return my deposit")
	fmt.Fprintln(ui.out, "0) Logout")

	choice, err := ui.readLine("> ")
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		return ui.handleListProducts(ctx, true)
	case "2":
		return ui.handleDeposit(ctx)
	case "3":
		return ui.handleBuy(ctx)
	case "4":
		return ui.handleResetDeposit(ctx)
	case "0":
		return ui.handleLogout(ctx)
	default:
		return nil
	}
}

func (ui *UI) sellerMenu(ctx context.Context) error {
	fmt.Fprintln(ui.out, "1) My products")
	fmt.Fprintln(ui.out, "2) Add product")
	fmt.Fprintln(ui.out, "3) Update product")
	fmt.Fprintln(ui.out, "4) Delete product")
	fmt.Fprintln(ui.out, "0) Logout")

	choice, err := ui.readLine("> ")
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		return ui.handleListProducts(ctx, true)
	case "2":
		return ui.handleAddProduct(ctx)
	case "3":
		return ui.handleUpdateProduct(ctx)
	case "4":
		return ui.handleRemoveProduct(ctx)
	case "0":
		return ui.handleLogout(ctx)
	default:
		return nil
	}
}

func (ui *UI) handleAuth(
	ctx context.Context,
	call func(context.Context, user.Credentials) (user.User, error),
	greeting string,
) error {
	username, err := ui.readLine("Username: ")
	if err != nil {
		return err
	}
	password, err := ui.readLine("Password: ")
	if err != nil {
		return err
	}

	u, err := call(ctx, user.Credentials{Username: username, Password: password})
	if err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf(greeting, u.Username))

	if err := ui.products.Refresh(ctx); err != nil {
		zctx.From(ctx).Warn("catalog refresh failed", zap.Error(err))
	}
	return nil
}

func (ui *UI) handleLogout(ctx context.Context) error {
	if err := ui.sessions.Logout(ctx); err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success("Logged out")
	return nil
}

func (ui *UI) handleListProducts(ctx context.Context, cached bool) error {
	if !cached {
		if err := ui.products.Refresh(ctx); err != nil {
			ui.notifier.Failure(client.UserMessage(err))
			return nil
		}
	}
	listed := ui.products.Products()
	if len(listed) == 0 {
		fmt.Fprintln(ui.out, "No products to show")
		return nil
	}
	fmt.Fprintln(ui.out, "\nAvailable products:")
	for _, p := range listed {
		status := fmt.Sprintf("%d available", p.Available)
		if p.Available == 0 {
			status = "unavailable"
		}
		fmt.Fprintf(ui.out, "  [%d] %s, %d cents, %s\n", p.ID, p.Name, p.Cost, status)
	}
	return nil
}

func (ui *UI) handleDeposit(ctx context.Context) error {
	denomination, err := ui.readInt64(fmt.Sprintf("Coin (%s): ", joinDenominations()))
	if err != nil {
		return err
	}
	if _, err := ui.sessions.Deposit(ctx, denomination); err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf("You successfully deposited %d cents", denomination))
	return nil
}

func (ui *UI) handleResetDeposit(ctx context.Context) error {
	change, err := ui.sessions.ResetDeposit(ctx)
	if err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success("Deposit returned. Your change: " + formatChange(change))
	return nil
}

func (ui *UI) handleBuy(ctx context.Context) error {
	id, err := ui.readInt64("Product id: ")
	if err != nil {
		return err
	}
	amount, err := ui.readInt("Amount: ")
	if err != nil {
		return err
	}

	receipt, err := ui.products.Purchase(ctx, id, amount)
	if err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf("Thank you for buying %s for %d cents. Here is your change: %s",
		receipt.ProductName, receipt.Spent, formatChange(receipt.Change)))

	// The purchase changed the balance server-side; pick it up.
	if err := ui.sessions.Sync(ctx); err != nil {
		zctx.From(ctx).Warn("session sync failed", zap.Error(err))
	}
	return nil
}

func (ui *UI) handleAddProduct(ctx context.Context) error {
	payload, err := ui.readProductPayload()
	if err != nil {
		return err
	}
	created, err := ui.products.Create(ctx, payload)
	if err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf("Product %q added successfully", created.Name))
	return nil
}

func (ui *UI) handleUpdateProduct(ctx context.Context) error {
	id, err := ui.readInt64("Product id: ")
	if err != nil {
		return err
	}
	payload, err := ui.readProductPayload()
	if err != nil {
		return err
	}
	updated, err := ui.products.Update(ctx, id, payload)
	if err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf("Product %q updated successfully", updated.Name))
	return nil
}

func (ui *UI) handleRemoveProduct(ctx context.Context) error {
	id, err := ui.readInt64("Product id: ")
	if err != nil {
		return err
	}
	name := strconv.FormatInt(id, 10)
	if p, ok := ui.products.Get(id); ok {
		name = p.Name
	}
	if err := ui.products.Remove(ctx, id); err != nil {
		ui.notifier.Failure(client.UserMessage(err))
		return nil
	}
	ui.notifier.Success(fmt.Sprintf("Product %q deleted successfully", name))
	return nil
}

func (ui *UI) readProductPayload() (product.Payload, error) {
	name, err := ui.readLine("Product name: ")
	if err != nil {
		return product.Payload{}, err
	}
	cost, err := ui.readInt64("Cost in cents (multiple of 5): ")
	if err != nil {
		return product.Payload{}, err
	}
	available, err := ui.readInt("Amount available: ")
	if err != nil {
		return product.Payload{}, err
	}
	return product.Payload{Name: name, Cost: cost, Available: available}, nil
}

func (ui *UI) readLine(prompt string) (string, error) {
	fmt.Fprint(ui.out, prompt)
	line, err := ui.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (ui *UI) readInt64(prompt string) (int64, error) {
	line, err := ui.readLine(prompt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (ui *UI) readInt(prompt string) (int, error) {
	n, err := ui.readInt64(prompt)
	return int(n), err
}

// formatChange renders a change breakdown the way the machine's display
// does: "20 Cents, 5 Cents."
func formatChange(change []int64) string {
	if len(change) == 0 {
		return "no change."
	}
	parts := make([]string, len(change))
	for i, coin := range change {
		parts[i] = strconv.FormatInt(coin, 10)
	}
	return strings.Join(parts, " Cents, ") + " Cents."
}

func joinDenominations() string {
	parts := make([]string, len(user.AllowedDenominations))
	for i, d := range user.AllowedDenominations {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return strings.Join(parts, ", ")
}
