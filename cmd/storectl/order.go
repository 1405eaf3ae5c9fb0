package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect and update orders directly in the database",
	}
	cmd.AddCommand(orderGetCmd())
	cmd.AddCommand(orderStatusCmd())
	cmd.AddCommand(orderStaleCmd())
	return cmd
}

func orderGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [order-number]",
		Short: "Print an order with its items as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, cleanup, err := openOrders(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			o, err := orders.GetOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	}
}

func orderStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [order-number]",
		Short: "Move an order through the status state machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd biz.StatusUpdate
			upd.Status, _ = cmd.Flags().GetString("status")
			upd.PaymentStatus, _ = cmd.Flags().GetString("payment-status")
			upd.PaymentID, _ = cmd.Flags().GetString("payment-id")
			actor, _ := cmd.Flags().GetString("actor")

			orders, cleanup, err := openOrders(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			o, err := orders.UpdateStatus(cmd.Context(), args[0], upd, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: status=%s payment_status=%s\n", o.OrderNumber, o.Status, o.PaymentStatus)
			return nil
		},
	}
	cmd.Flags().String("status", "", "new order status")
	cmd.Flags().String("payment-status", "", "new payment status")
	cmd.Flags().String("payment-id", "", "gateway payment id to record")
	cmd.Flags().String("actor", "storectl", "actor recorded in the activity log")
	return cmd
}

func orderStaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List online orders still waiting for payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, cleanup, err := openOrders(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := orders.ListStaleOrders(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tPAYMENT\tTOTAL\tCREATED")
			for _, o := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.OrderNumber, o.PaymentStatus, o.Total.StringFixed(2), o.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

// openOrders builds the order usecase over the configured database. Mail is
// left to the server, so the notifier never sends from here.
func openOrders(cmd *cobra.Command) (*biz.OrderUsecase, func(), error) {
	path, _ := cmd.Flags().GetString("conf")
	bc, err := conf.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewFilter(log.NewStdLogger(cmd.ErrOrStderr()), log.FilterLevel(log.LevelWarn))

	db, err := data.NewDB(bc, logger)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		return nil, nil, errors.New("data.database.source is not configured")
	}
	d, cleanup, err := data.NewData(bc, logger, db, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	repo := data.NewOrderRepo(bc, d, logger)
	bc.Notification.ResendAPIKey = ""
	notifier := biz.NewNotificationUsecase(bc, repo, data.NewMailer(bc, logger), data.NewNotificationLedger(d), metrics, logger)
	orders := biz.NewOrderUsecase(bc, repo, data.NewActivityRepo(d, logger), notifier, logger)
	return orders, func() {
		notifier.Wait()
		cleanup()
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
