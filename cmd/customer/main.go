// customer は客席タブレットのカート操作を端末から行う。
// カートは端末内の SQLite に保存されるので、コマンドをまたいで残る。
//
//	go run ./cmd/customer bind table-1
//	go run ./cmd/customer add 1 2 10,11 "no onion"
//	go run ./cmd/customer show
//	go run ./cmd/customer checkout cash
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tableorder/internal/cart"
	"tableorder/internal/client"
	"tableorder/internal/config"
	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/infra/cartstore"
	"tableorder/internal/usecase"

	"github.com/google/uuid"
)

const usage = `usage: customer <command>
  bind <qr>                               bind this device to a table
  add <menu_id> [qty] [addon,ids] [notes] add a line
  qty <line_id> <n>                       set quantity (0 removes)
  notes <line_id> <text>                  set line notes
  rm <line_id>                            remove a line
  clear                                   empty the cart
  show                                    print lines and totals
  checkout <cash|non_cash> [email]        place the order
  status <order_id>                       show an order`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := config.LoadEnvFiles(".env", "../.env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := cartstore.Open(cfg.CartDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	api := client.New(cfg.APIBaseURL, client.WithTimeout(cfg.FetchTimeout))
	agg, err := cart.Open(ctx, db.ForDevice(cfg.DeviceID), api)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(ctx, os.Stdout, agg, api, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, explain(err))
		os.Exit(1)
	}
}

// API は customer が使うサーバ呼び出し
type API interface {
	cart.OrderPlacer
	BindSession(ctx context.Context, qrValue string) (usecase.SessionOutput, error)
	MenuItem(ctx context.Context, id int64) (usecase.MenuItemOutput, error)
	GetOrder(ctx context.Context, orderID int64, sessionToken string) (usecase.OrderOutput, error)
}

func run(ctx context.Context, w io.Writer, agg *cart.Aggregate, api API, cmd string, args []string) error {
	switch cmd {
	case "bind":
		if len(args) != 1 {
			return errors.New("bind takes the qr value")
		}
		s, err := api.BindSession(ctx, args[0])
		if err != nil {
			return err
		}
		if err := agg.Bind(ctx, s.Token, s.TableNumber); err != nil {
			return err
		}
		fmt.Fprintf(w, "table %d until %s\n", s.TableNumber, s.ExpiresAt.Local().Format("15:04"))
		return nil

	case "add":
		if len(args) < 1 {
			return errors.New("add takes a menu id")
		}
		line, err := lineFromMenu(ctx, api, args)
		if err != nil {
			return err
		}
		if err := agg.AddLine(ctx, line); err != nil {
			return err
		}
		return show(ctx, w, agg)

	case "qty":
		if len(args) != 2 {
			return errors.New("qty takes a line id and a quantity")
		}
		q, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad quantity %q", args[1])
		}
		if err := agg.SetQuantity(ctx, args[0], q); err != nil {
			return err
		}
		return show(ctx, w, agg)

	case "notes":
		if len(args) < 2 {
			return errors.New("notes takes a line id and text")
		}
		if err := agg.SetNotes(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		return show(ctx, w, agg)

	case "rm":
		if len(args) != 1 {
			return errors.New("rm takes a line id")
		}
		if err := agg.RemoveLine(ctx, args[0]); err != nil {
			return err
		}
		return show(ctx, w, agg)

	case "clear":
		return agg.Clear(ctx)

	case "show":
		return show(ctx, w, agg)

	case "checkout":
		if len(args) < 1 {
			return errors.New("checkout takes a payment method")
		}
		method := model.PaymentMethod(args[0])
		email := ""
		if len(args) > 1 {
			email = args[1]
		}
		out, err := agg.Checkout(ctx, api, method, "", email, uuid.NewString())
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && len(apiErr.StockErrors) > 0 {
				for _, l := range agg.ConflictingLines(apiErr.StockErrors) {
					fmt.Fprintf(w, "adjust line %s (%s)\n", l.LineID(), l.Name)
				}
			}
			return err
		}
		fmt.Fprintf(w, "order #%d %s total %d [%s]\n", out.OrderID, out.OrderNumber, out.Totals.Total, out.Status)
		if out.PaymentRedirectURL != "" {
			fmt.Fprintf(w, "pay at %s\n", out.PaymentRedirectURL)
		}
		if out.PaymentError != "" {
			fmt.Fprintf(w, "payment could not start: %s\n", out.PaymentError)
		}
		return nil

	case "status":
		if len(args) != 1 {
			return errors.New("status takes an order id")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q", args[0])
		}
		o, err := api.GetOrder(ctx, id, agg.Snapshot().SessionToken)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s [%s] payment=%s total=%d\n", o.OrderNumber, o.Status, o.PaymentStatus, o.Totals.Total)
		for _, it := range o.Items {
			fmt.Fprintf(w, "  %dx %s %s\n", it.Quantity, it.Name, it.Status)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// lineFromMenu は表示用にメニューを引いて行を作る。在庫の最終判断はサーバ側。
func lineFromMenu(ctx context.Context, api API, args []string) (cart.LineItem, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("bad menu id %q", args[0])
	}
	item, err := api.MenuItem(ctx, id)
	if err != nil {
		return cart.LineItem{}, err
	}
	if !item.IsAvailable {
		return cart.LineItem{}, fmt.Errorf("%s is not available", item.Name)
	}

	line := cart.LineItem{ItemID: item.ID, Name: item.Name, Category: item.Category, UnitPrice: item.Price, Quantity: 1}
	if len(args) > 1 {
		if line.Quantity, err = strconv.ParseInt(args[1], 10, 64); err != nil {
			return cart.LineItem{}, fmt.Errorf("bad quantity %q", args[1])
		}
	}
	if len(args) > 2 && args[2] != "" {
		prices := map[int64]int64{}
		for _, a := range item.AddOns {
			if a.IsAvailable {
				prices[a.ID] = a.Price
			}
		}
		for _, s := range strings.Split(args[2], ",") {
			aid, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return cart.LineItem{}, fmt.Errorf("bad add-on id %q", s)
			}
			price, ok := prices[aid]
			if !ok {
				return cart.LineItem{}, fmt.Errorf("add-on %d is not offered for %s", aid, item.Name)
			}
			line.AddOns = append(line.AddOns, pricing.AddOn{ID: aid, Price: price})
		}
	}
	if len(args) > 3 {
		line.Notes = strings.Join(args[3:], " ")
	}
	if item.StockQuantity < line.Quantity {
		return cart.LineItem{}, fmt.Errorf("only %d %s left", item.StockQuantity, item.Name)
	}
	return line, nil
}

func show(ctx context.Context, w io.Writer, agg *cart.Aggregate) error {
	c := agg.Snapshot()
	if c.SessionToken == "" {
		fmt.Fprintln(w, "(not bound to a table)")
	} else {
		fmt.Fprintf(w, "table %d\n", c.TableNumber)
	}
	for _, l := range c.Lines {
		fmt.Fprintf(w, "  %-10s %dx %s @%d", l.LineID(), l.Quantity, l.Name, l.UnitPrice)
		if l.Notes != "" {
			fmt.Fprintf(w, " (%s)", l.Notes)
		}
		fmt.Fprintln(w)
	}
	b := agg.Breakdown(ctx)
	fmt.Fprintf(w, "subtotal %d\nservice  %d (%s)\ntax      %d (%s)\ntotal    %d\n",
		b.Subtotal, b.ServiceCharge, b.ServiceChargeRate.String(), b.Tax, b.TaxRate.String(), b.Total)
	return nil
}

func explain(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == usecase.CodeStockConflict {
			parts := make([]string, 0, len(apiErr.StockErrors))
			for _, s := range apiErr.StockErrors {
				parts = append(parts, fmt.Sprintf("menu %d: wanted %d, %d left", s.MenuID, s.Requested, s.Available))
			}
			return "out of stock: " + strings.Join(parts, "; ")
		}
		return apiErr.Message
	}
	switch {
	case errors.Is(err, cart.ErrNotBound):
		return "scan the table code first (customer bind <qr>)"
	case errors.Is(err, cart.ErrEmpty):
		return "the cart is empty"
	}
	return err.Error()
}
