package main

import (
	"fmt"
	"time"

	"cardcycle/internal/core"
	"cardcycle/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRollCmd(v *viper.Viper) *cobra.Command {
	var (
		at     string
		cardID string
	)
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Run the statement roll-over once",
		Long: `Closes the cycle of every card whose statement day is today (or the day given by --at).
Safe to repeat: a card closes at most once per calendar month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(v)
			if err != nil {
				return err
			}
			defer a.close()

			loc := a.cfg.StatementLocation()
			now := time.Now()
			if at != "" {
				if now, err = parseInstant(at, loc); err != nil {
					return err
				}
			}
			roller := a.svc.Roller.WithClock(func() time.Time { return now })

			var results []services.RollResult
			if cardID != "" {
				card, err := a.repo.GetAccount(cmd.Context(), cardID)
				if err != nil {
					return err
				}
				results = []services.RollResult{roller.RollCard(cmd.Context(), card, now)}
			} else if results, err = roller.Run(cmd.Context()); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"processing_date": now.In(loc).Format("2006-01-02"),
				"summary":         services.Summarize(results),
				"results":         results,
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "pretend the run happens at this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cardID, "card", "", "roll only this card")
	return cmd
}

func newRecalcCmd(v *viper.Viper) *cobra.Command {
	var cardID string
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recompute the last closed statement balance of a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(v)
			if err != nil {
				return err
			}
			defer a.close()

			balance, err := a.svc.Recalculator.RecalculateLastCycle(cmd.Context(), cardID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"card_id":           cardID,
				"statement_balance": balance.String(),
			})
		},
	}
	cmd.Flags().StringVar(&cardID, "card", "", "card account id")
	_ = cmd.MarkFlagRequired("card")
	return cmd
}

type windowOutput struct {
	CardID            string `json:"card_id,omitempty"`
	State             string `json:"state,omitempty"`
	Start             string `json:"start,omitempty"`
	End               string `json:"end,omitempty"`
	NextStatementDate string `json:"next_statement_date,omitempty"`
}

func newWindowCmd(v *viper.Viper) *cobra.Command {
	var (
		cardID   string
		day      int
		closedAt string
	)
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show a statement cycle window",
		Long: `With --card, shows the last closed cycle of a stored card.
With --day and --closed-at, computes the cycle closed on that date without touching the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cardID == "" {
				return computeWindow(cmd, v, day, closedAt)
			}

			a, err := openApp(v)
			if err != nil {
				return err
			}
			defer a.close()

			loc := a.cfg.StatementLocation()
			card, err := a.repo.GetAccount(cmd.Context(), cardID)
			if err != nil {
				return err
			}
			if !card.IsCreditCard() {
				return core.ErrNotCreditCard
			}

			out := windowOutput{CardID: card.ID, State: string(card.StatementState())}
			if w, ok := card.LastClosedCycle(loc); ok {
				out.Start, out.End = w.Start.Format("2006-01-02"), w.End.Format("2006-01-02")
			}
			if next, ok := card.NextStatementDate(time.Now(), loc); ok {
				out.NextStatementDate = next.Format("2006-01-02")
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&cardID, "card", "", "card account id")
	cmd.Flags().IntVar(&day, "day", 0, "statement day of month (1-31)")
	cmd.Flags().StringVar(&closedAt, "closed-at", "", "closing date (RFC 3339 or YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("card", "day")
	return cmd
}

func computeWindow(cmd *cobra.Command, v *viper.Viper, day int, closedAt string) error {
	if err := core.ValidateDayOfMonth(&day); err != nil {
		return fmt.Errorf("--day: %w", err)
	}
	if closedAt == "" {
		return fmt.Errorf("--closed-at is required with --day")
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	loc := cfg.StatementLocation()
	at, err := parseInstant(closedAt, loc)
	if err != nil {
		return err
	}

	w := core.ClosedCycleWindow(day, at, loc)
	return printJSON(cmd.OutOrStdout(), windowOutput{
		Start: w.Start.Format("2006-01-02"),
		End:   w.End.Format("2006-01-02"),
	})
}
