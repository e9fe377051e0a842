// station は厨房・バー・パティスリー・レジの画面を端末で動かす。
// 注文一覧を定期取得し、標準入力のコマンドで明細やお会計を更新する。
//
//	STAFF_TOKEN=... go run ./cmd/station -surface kitchen
//
// コマンド: done <order> <item> / undo <order> <item> / pay <order> / complete <order> / refresh / list
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tableorder/internal/client"
	"tableorder/internal/config"
	"tableorder/internal/domain/model"
	"tableorder/internal/logger"
	"tableorder/internal/stationsync"
	"tableorder/internal/usecase"
)

func main() {
	surface := flag.String("surface", "kitchen", "kitchen | bar | pastry | cashier")
	status := flag.String("status", "", "list filter (station: pending|ready|active, cashier: active|unpaid|...)")
	flag.Parse()

	if err := config.LoadEnvFiles(".env", "../.env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.StaffToken == "" {
		fmt.Fprintln(os.Stderr, "STAFF_TOKEN is required")
		os.Exit(1)
	}

	log := logger.New("station-"+*surface, cfg.LogLevel)
	api := client.New(cfg.APIBaseURL, client.WithStaffToken(cfg.StaffToken), client.WithTimeout(cfg.FetchTimeout))

	feed, err := feedFor(api, *surface, *status)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := stationsync.NewPoller(feed, api,
		stationsync.WithInterval(cfg.PollInterval),
		stationsync.WithTimeout(cfg.FetchTimeout),
		stationsync.WithLogger(log),
		stationsync.WithHooks(stationsync.Hooks{
			OnChange: func(view []usecase.OrderOutput) { render(os.Stdout, view) },
			OnError: func(err error) {
				fmt.Fprintf(os.Stdout, "! %s\n", describe(err))
			},
			OnRegressed: func(o usecase.OrderOutput) {
				fmt.Fprintf(os.Stdout, "! %s (table %d) is back in preparation\n", o.OrderNumber, o.TableNumber)
			},
		}),
	)

	go readCommands(ctx, os.Stdin, poller, log)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown", "", "poller stopped", err)
		os.Exit(1)
	}
}

func feedFor(api *client.Client, surface, status string) (stationsync.FetchFunc, error) {
	if surface == "cashier" {
		return stationsync.CashierFeed(api, status), nil
	}
	st, ok := model.ParseStation(surface)
	if !ok {
		return nil, fmt.Errorf("unknown surface %q", surface)
	}
	return stationsync.StationFeed(api, st, status), nil
}

func readCommands(ctx context.Context, r io.Reader, p *stationsync.Poller, log *logger.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m, err := parseCommand(line)
		switch {
		case errors.Is(err, errRefresh):
			_ = p.Refresh(ctx)
			continue
		case errors.Is(err, errList):
			render(os.Stdout, p.View())
			continue
		case err != nil:
			fmt.Fprintln(os.Stdout, "?", err)
			continue
		}

		log.Debug("command", "", "submitting", slog.String("mutation", m.String()))
		res := p.Submit(m)
		go func() {
			// 失敗は OnError で表示済み
			if err := <-res; err == nil {
				fmt.Fprintf(os.Stdout, "ok %s\n", m)
			}
		}()
	}
	p.Close()
}

var (
	errRefresh = errors.New("refresh")
	errList    = errors.New("list")
)

func parseCommand(line string) (stationsync.Mutation, error) {
	f := strings.Fields(line)
	ids := make([]int64, 0, 2)
	for _, s := range f[1:] {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return stationsync.Mutation{}, fmt.Errorf("bad id %q", s)
		}
		ids = append(ids, id)
	}

	need := func(n int) error {
		if len(ids) != n {
			return fmt.Errorf("%s takes %d ids", f[0], n)
		}
		return nil
	}

	switch f[0] {
	case "done", "undo":
		if err := need(2); err != nil {
			return stationsync.Mutation{}, err
		}
		st := model.ItemStatusDone
		if f[0] == "undo" {
			st = model.ItemStatusPending
		}
		return stationsync.Mutation{Kind: stationsync.ToggleItem, OrderID: ids[0], ItemID: ids[1], Status: st}, nil
	case "pay":
		if err := need(1); err != nil {
			return stationsync.Mutation{}, err
		}
		return stationsync.Mutation{Kind: stationsync.ValidatePayment, OrderID: ids[0]}, nil
	case "complete":
		if err := need(1); err != nil {
			return stationsync.Mutation{}, err
		}
		return stationsync.Mutation{Kind: stationsync.Complete, OrderID: ids[0]}, nil
	case "refresh":
		return stationsync.Mutation{}, errRefresh
	case "list":
		return stationsync.Mutation{}, errList
	}
	return stationsync.Mutation{}, fmt.Errorf("unknown command %q", f[0])
}

func render(w io.Writer, view []usecase.OrderOutput) {
	fmt.Fprintf(w, "---- %d orders ----\n", len(view))
	for _, o := range view {
		fmt.Fprintf(w, "#%d %s table %d [%s] payment=%s total=%d\n",
			o.ID, o.OrderNumber, o.TableNumber, o.Status, o.PaymentStatus, o.Totals.Total)
		for _, it := range o.Items {
			mark := " "
			if it.Status == model.ItemStatusDone {
				mark = "x"
			}
			fmt.Fprintf(w, "   [%s] %d  %dx %s", mark, it.ID, it.Quantity, it.Name)
			if it.Notes != "" {
				fmt.Fprintf(w, " (%s)", it.Notes)
			}
			fmt.Fprintln(w)
		}
	}
}

// describe は拒否理由を操作者が判断できる形にする。
// 409/403 のあとは Poller が一覧を取り直している。
func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case usecase.CodeStaleWrite:
			return "already changed elsewhere, reloading: " + apiErr.Message
		case usecase.CodePreconditionFailed:
			return "not allowed now, reloading: " + apiErr.Message
		case usecase.CodeForbidden:
			return "not your station, reloading: " + apiErr.Message
		}
		return apiErr.Error()
	}
	if client.IsTransient(err) {
		return "network problem, will retry on next refresh: " + err.Error()
	}
	return err.Error()
}
