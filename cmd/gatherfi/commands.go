package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/gatherfi-go/config"
	"github.com/bitfsorg/gatherfi-go/engine"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "write the default configuration to the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = config.ConfigPath(dataDir)
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		cfg := config.DefaultConfig()
		cfg.DataDir = dataDir
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return config.Encode(os.Stdout, cfg)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "list events in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, done, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer done()

		events, err := e.Events(context.Background())
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		fmt.Printf("%-64s  %-10s  %12s  %12s  %s\n", "ID", "STATUS", "RAISED", "TARGET", "NAME")
		for _, ev := range events {
			fmt.Printf("%-64s  %-10s  %12d  %12d  %s\n", ev.ID, ev.Status(now), ev.AmountRaised, ev.TargetAmount, ev.Name)
		}
		return nil
	},
}

var eventCmd = &cobra.Command{
	Use:   "event <id>",
	Short: "show an event with its escrow, budget and profit pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ledger.ParseEventID(args[0])
		if err != nil {
			return err
		}
		e, done, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx := context.Background()
		ev, err := e.Event(ctx, id)
		if err != nil {
			return err
		}
		printEvent(ev)

		esc, err := e.Escrow(ctx, id)
		if err != nil {
			return err
		}
		printEscrow(esc)

		budget, err := e.Budget(ctx, id)
		switch {
		case err == nil:
			printBudget(budget)
		case ledger.KindOf(err) == ledger.ErrNotFound:
			fmt.Println("\nbudget: none submitted")
		default:
			return err
		}

		pool, err := e.ProfitPool(ctx, id)
		if err != nil {
			return err
		}
		printPool(pool)
		return nil
	},
}

var contributionCmd = &cobra.Command{
	Use:   "contribution <event-id> <party>",
	Short: "show one contributor's record; party is a hex id or public key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ledger.ParseEventID(args[0])
		if err != nil {
			return err
		}
		who, err := identity.ParseParty(args[1])
		if err != nil {
			return err
		}
		e, done, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer done()

		c, err := e.Contribution(context.Background(), id, who)
		if err != nil {
			return err
		}
		fmt.Printf("contribution %s to %s\n", c.Contributor, c.Event)
		fmt.Printf("  amount:       %d\n", c.Amount)
		fmt.Printf("  voting power: %d\n", c.VotingPower)
		fmt.Printf("  profits:      %d\n", c.ClaimedProfits)
		fmt.Printf("  refunded:     %t\n", c.ClaimedRefund)
		if at, ok := c.RefundedAt.Get(); ok {
			fmt.Printf("  refunded at:  %s\n", at.Format(time.RFC3339))
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [id]",
	Short: "verify ledger conservation for one event or all events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, done, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer done()

		var reports []*engine.AuditReport
		if len(args) == 1 {
			id, err := ledger.ParseEventID(args[0])
			if err != nil {
				return err
			}
			report, err := e.Audit(context.Background(), id)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		} else {
			if reports, err = e.AuditAll(context.Background()); err != nil {
				return err
			}
		}

		failed := 0
		for _, r := range reports {
			if r.OK() {
				fmt.Printf("ok    %s\n", r.Event)
				continue
			}
			failed++
			fmt.Printf("FAIL  %s\n", r.Event)
			for _, v := range r.Violations {
				fmt.Printf("      %s\n", v)
			}
		}
		if failed > 0 {
			return fmt.Errorf("audit failed for %d of %d events", failed, len(reports))
		}
		return nil
	},
}

func printEvent(ev *ledger.Event) {
	fmt.Printf("event %s\n", ev.ID)
	fmt.Printf("  name:        %s\n", ev.Name)
	fmt.Printf("  organizer:   %s\n", ev.Organizer)
	fmt.Printf("  category:    %s\n", ev.Category)
	fmt.Printf("  location:    %s\n", ev.Location)
	fmt.Printf("  status:      %s\n", ev.Status(time.Now().UTC()))
	fmt.Printf("  raised:      %d / %d\n", ev.AmountRaised, ev.TargetAmount)
	fmt.Printf("  backers:     %d\n", ev.TotalBackers)
	fmt.Printf("  tickets:     %d / %d (revenue %d)\n", ev.TicketsSold, ev.MaxTickets, ev.RevenueFromTickets)
	fmt.Printf("  event date:  %s\n", ev.EventDate.Format(time.RFC3339))
	fmt.Printf("  deadline:    %s\n", ev.FundingDeadline.Format(time.RFC3339))
	fmt.Printf("  paused:      %t\n", ev.Paused)
}

func printEscrow(esc *ledger.Escrow) {
	fmt.Printf("\nescrow %s\n", esc.Account)
	fmt.Printf("  total:       %d\n", esc.TotalAmount)
	fmt.Printf("  balance:     %d\n", esc.Balance)
	fmt.Printf("  released:    %d\n", esc.ReleasedAmount)
	fmt.Printf("  refunded:    %d\n", esc.RefundedAmount)
	fmt.Printf("  locked:      %t\n", esc.Locked)
	for i, m := range esc.Milestones {
		fmt.Printf("  milestone %d: %d released=%t %s\n", i, m.Amount, m.Released, m.Description)
	}
}

func printBudget(b *ledger.Budget) {
	fmt.Printf("\nbudget round %d\n", b.Round)
	fmt.Printf("  total:       %d\n", b.TotalAmount)
	fmt.Printf("  spent:       %d\n", b.AmountSpent)
	fmt.Printf("  approved:    %t (for %d, against %d)\n", b.Approved(), b.Tally.For, b.Tally.Against)
	for i, item := range b.Items {
		fmt.Printf("  item %d: %d paid=%t %s\n", i, item.Amount, item.Paid, item.Name)
	}
}

func printPool(p *ledger.ProfitPool) {
	fmt.Printf("\nprofit pool %s\n", p.Account)
	fmt.Printf("  revenue:     %d tickets, %d other\n", p.TotalRevenue, p.OtherRevenue)
	fmt.Printf("  balance:     %d\n", p.Balance)
	fmt.Printf("  paid out:    %d\n", p.PaidOut)
	fmt.Printf("  calculated:  %t\n", p.Calculated)
	fmt.Printf("  distributed: %t\n", p.Distributed)
	if p.Calculated {
		fmt.Printf("  split:       backers %d, organizer %d, platform %d\n",
			p.Split.Backer, p.Split.Organizer, p.Split.PlatformTotal())
	}
}
