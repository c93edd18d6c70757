package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/slots"
	"github.com/kozuki35/hot-desking/pkg/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	server  string
	token   string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "deskctl",
		Short:        "Book hot desks from the command line",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("DESKCTL_SERVER", "http://localhost:3000"), "booking service base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("DESKCTL_TOKEN"), "bearer token from deskctl login")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request outcome")

	cmd.AddCommand(newLoginCmd(opts), newDesksCmd(opts), newToggleCmd(opts), newMoveCmd(opts))
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a token for DESKCTL_TOKEN",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.server, opts.timeout)
			auth, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s %s\n", auth.User.FirstName, auth.User.LastName)
			fmt.Fprintln(cmd.OutOrStdout(), auth.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newDesksCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "desks",
		Short: "List active desks with slot availability for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date)
			if err != nil {
				return err
			}
			c, err := session(cmd, opts)
			if err != nil {
				return err
			}
			desks, err := c.ListDesks(cmd.Context(), string(domain.DeskStatusActive), day)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tNAME\tLOCATION\tMORNING\tAFTERNOON")
			for _, d := range desks {
				bookings, err := client.FromBookings(d.Bookings)
				if err != nil {
					return err
				}
				mine := slots.Selection(bookings, c.CurrentUserID())
				taken := slots.Disabled(bookings, c.CurrentUserID())
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Code, d.Name, d.Location,
					availability(domain.SlotMorning, mine, taken),
					availability(domain.SlotAfternoon, mine, taken))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "booking date as YYYY-MM-DD (default today)")
	return cmd
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	var deskID, date, selected string
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Set which slots you hold on a desk, booking and cancelling as needed",
		Example: "  deskctl toggle --desk 7f3c... --date 2030-03-04 --slots morning,afternoon\n" +
			"  deskctl toggle --desk 7f3c... --date 2030-03-04 --slots \"\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date)
			if err != nil {
				return err
			}
			next, err := domain.ParseSlotSet(splitSlots(selected))
			if err != nil {
				return err
			}
			c, err := session(cmd, opts)
			if err != nil {
				return err
			}

			log := zap.NewNop()
			if opts.verbose {
				if log, err = zap.NewDevelopment(); err != nil {
					return err
				}
			}
			ctrl := slots.NewController(c, c, deskID, day, slots.WithLogger(log))
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}

			outcome, err := ctrl.Toggle(cmd.Context(), next)
			if err != nil {
				return err
			}
			printOutcome(cmd, outcome)
			return outcome.Err()
		},
	}
	cmd.Flags().StringVar(&deskID, "desk", "", "desk id")
	cmd.Flags().StringVar(&date, "date", "", "booking date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&selected, "slots", "", "comma-separated slots to hold afterwards; empty releases all")
	_ = cmd.MarkFlagRequired("desk")
	return cmd
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	var bookingID, date, slot string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move one of your bookings to another date or slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" && slot == "" {
				return errors.New("nothing to change: pass --date and/or --slot")
			}
			var day domain.Date
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return err
				}
				day = d
			}
			var ts domain.TimeSlot
			if slot != "" {
				parsed, err := domain.ParseTimeSlot(slot)
				if err != nil {
					return err
				}
				ts = parsed
			}
			c, err := session(cmd, opts)
			if err != nil {
				return err
			}

			moved, err := c.MoveBooking(cmd.Context(), bookingID, day, ts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booking %s now %s %s\n", moved.ID, moved.BookingDate, moved.TimeSlot)
			return nil
		},
	}
	cmd.Flags().StringVar(&bookingID, "booking", "", "booking id")
	cmd.Flags().StringVar(&date, "date", "", "new booking date as YYYY-MM-DD")
	cmd.Flags().StringVar(&slot, "slot", "", "new slot: morning or afternoon")
	_ = cmd.MarkFlagRequired("booking")
	return cmd
}

// session builds a client for the stored token and resolves its user.
func session(cmd *cobra.Command, opts *rootOptions) (*client.Client, error) {
	if opts.token == "" {
		return nil, errors.New("no token: run deskctl login and export DESKCTL_TOKEN")
	}
	c := client.New(opts.server, opts.timeout).WithToken(opts.token, "")
	if _, err := c.Me(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func printOutcome(cmd *cobra.Command, o *slots.Outcome) {
	out := cmd.OutOrStdout()
	for _, b := range o.Created {
		fmt.Fprintf(out, "booked %s (%s)\n", b.TimeSlot, b.ID)
	}
	for _, c := range o.Cancelled {
		fmt.Fprintf(out, "cancelled %s (%s)\n", c.Slot, c.BookingID)
	}
	for _, slot := range o.Unmatched {
		fmt.Fprintf(out, "%s was already free\n", slot)
	}
	for _, slot := range o.Ignored.Slots() {
		fmt.Fprintf(out, "%s is booked by someone else\n", slot)
	}
	for _, f := range o.Failures {
		fmt.Fprintf(out, "failed %s: %v\n", f.Slot, f.Err)
	}
	fmt.Fprintf(out, "now holding %s\n", o.Selection)
}

func availability(slot domain.TimeSlot, mine, taken domain.SlotSet) string {
	switch {
	case mine.Has(slot):
		return "yours"
	case taken.Has(slot):
		return "taken"
	default:
		return "free"
	}
}

func parseDay(s string) (domain.Date, error) {
	if s == "" {
		return domain.DateOf(time.Now()), nil
	}
	return domain.ParseDate(s)
}

func splitSlots(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
