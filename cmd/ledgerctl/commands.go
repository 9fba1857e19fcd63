package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("invalid usage")

var (
	bold    = color.New(color.Bold)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
	magenta = color.New(color.FgMagenta)
)

// CLI runs ledgerctl commands against an application.
type CLI struct {
	App *app.App
	Out io.Writer
	// AdminEmail identifies the admin for decisions; empty means the first
	// admin in the ledger.
	AdminEmail string
	// Width truncates long text columns; zero disables truncation.
	Width int
}

// Run dispatches args[0] to its command.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "snapshot":
		return c.snapshot()
	case "feed":
		if len(rest) > 1 {
			return fmt.Errorf("%w: feed [urgency|critical|newest]", ErrUsage)
		}
		order := ""
		if len(rest) == 1 {
			order = rest[0]
		}
		return c.feed(ctx, order)
	case "pending":
		return c.pending(ctx)
	case "logs":
		return c.logs()
	case "summary":
		if len(rest) != 1 {
			return fmt.Errorf("%w: summary <email>", ErrUsage)
		}
		return c.summary(ctx, rest[0])
	case "verify":
		if len(rest) != 2 {
			return fmt.Errorf("%w: verify <user_id> approve|reject", ErrUsage)
		}
		return c.verify(ctx, rest[0], rest[1])
	case "approve", "reject":
		if len(rest) != 1 {
			return fmt.Errorf("%w: %s <request_id>", ErrUsage, cmd)
		}
		return c.decide(ctx, rest[0], cmd)
	case "close":
		if len(rest) != 1 {
			return fmt.Errorf("%w: close <request_id>", ErrUsage)
		}
		return c.close(ctx, rest[0])
	case "donate":
		if len(rest) < 3 || len(rest) > 4 {
			return fmt.Errorf("%w: donate <request_id> <amount> <donor_email> [mode]", ErrUsage)
		}
		mode := ""
		if len(rest) == 4 {
			mode = rest[3]
		}
		return c.donate(ctx, rest[0], rest[1], rest[2], mode)
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

func (c *CLI) snapshot() error {
	data, err := ledger.Encode(c.App.Deps.Store.Snapshot())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(data))
	return err
}

func (c *CLI) feed(ctx context.Context, rawOrder string) error {
	order, err := request.ParseFeedOrder(rawOrder)
	if err != nil {
		return err
	}
	rs := c.App.RequestService.Feed(ctx, order)
	tw := tabwriter.NewWriter(c.Out, 0, 2, 2, ' ', 0)
	bold.Fprintln(tw, "ID\tURGENCY\tRAISED\tTARGET\tPROGRESS\tSTUDENT\tTITLE") //nolint:errcheck
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n", //nolint:errcheck
			r.ID,
			urgencyLabel(r.UrgencyLevel),
			r.AmountRaised.StringFixed(2),
			r.RequestedAmount.StringFixed(2),
			r.Progress().String(),
			r.StudentName,
			c.truncate(r.Title),
		)
	}
	return tw.Flush()
}

func (c *CLI) pending(ctx context.Context) error {
	admin, err := c.admin()
	if err != nil {
		return err
	}
	rs, err := c.App.RequestService.Pending(ctx, admin)
	if err != nil {
		return err
	}
	users, err := c.App.UserService.PendingVerifications(ctx, admin)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.Out, 0, 2, 2, ' ', 0)
	magenta.Fprintf(tw, "Pending requests (%d)\n", len(rs)) //nolint:errcheck
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck
			r.ID, urgencyLabel(r.UrgencyLevel), r.RequestedAmount.StringFixed(2), r.StudentName, c.truncate(r.Title))
	}
	magenta.Fprintf(tw, "Pending verifications (%d)\n", len(users)) //nolint:errcheck
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.CollegeName) //nolint:errcheck
	}
	return tw.Flush()
}

func (c *CLI) logs() error {
	tw := tabwriter.NewWriter(c.Out, 0, 2, 2, ' ', 0)
	bold.Fprintln(tw, "TIME\tACTION\tTARGET\tADMIN\tDETAILS") //nolint:errcheck
	for _, e := range c.App.Deps.Store.Snapshot().Logs() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck
			e.Timestamp.Format("2006-01-02 15:04:05"),
			actionLabel(string(e.Action)),
			e.TargetID,
			e.AdminName,
			c.truncate(e.Details),
		)
	}
	return tw.Flush()
}

func (c *CLI) summary(ctx context.Context, email string) error {
	u, err := c.App.UserService.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	sum, err := c.App.UserService.Summary(ctx, u.ID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.Out, 0, 2, 2, ' ', 0)
	bold.Fprintf(tw, "%s (%s)\n", u.FullName, u.ID)                         //nolint:errcheck
	fmt.Fprintf(tw, "Requests filed\t%d\n", sum.RequestsFiled)              //nolint:errcheck
	fmt.Fprintf(tw, "Aid received\t%s\n", sum.AidReceived.StringFixed(2))   //nolint:errcheck
	fmt.Fprintf(tw, "Donations made\t%d\n", sum.DonationsMade)              //nolint:errcheck
	fmt.Fprintf(tw, "Total donated\t%s\n", sum.TotalDonated.StringFixed(2)) //nolint:errcheck
	return tw.Flush()
}

func (c *CLI) verify(ctx context.Context, userID, verdict string) error {
	decision, err := parseVerdict(verdict)
	if err != nil {
		return err
	}
	admin, err := c.admin()
	if err != nil {
		return err
	}
	u, err := c.App.UserService.DecideVerification(ctx, userID, decision, admin)
	if err != nil {
		return err
	}
	return c.done("User %s is now %s", u.ID, u.VerificationStatus)
}

func (c *CLI) decide(ctx context.Context, requestID, verdict string) error {
	decision, err := parseVerdict(verdict)
	if err != nil {
		return err
	}
	admin, err := c.admin()
	if err != nil {
		return err
	}
	r, err := c.App.RequestService.DecideRequest(ctx, requestID, decision, admin)
	if err != nil {
		return err
	}
	return c.done("Request %s is now %s", r.ID, r.Status)
}

func (c *CLI) close(ctx context.Context, requestID string) error {
	admin, err := c.admin()
	if err != nil {
		return err
	}
	r, err := c.App.RequestService.CloseRequest(ctx, requestID, admin)
	if err != nil {
		return err
	}
	return c.done("Request %s closed with %s raised", r.ID, r.AmountRaised.StringFixed(2))
}

func (c *CLI) donate(ctx context.Context, requestID, rawAmount, donorEmail, mode string) error {
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return domain.NewValidationError("amount", "must be a number")
	}
	donor, err := c.App.UserService.FindByEmail(ctx, donorEmail)
	if err != nil {
		return err
	}
	d, r, err := c.App.DonationService.RecordDonation(ctx, requestID, donor, amount, mode)
	if err != nil {
		return err
	}
	return c.done("Donation %s recorded: %s raised of %s (%s%%)",
		d.ID, r.AmountRaised.StringFixed(2), r.RequestedAmount.StringFixed(2), r.Progress().String())
}

// admin resolves the acting administrator.
func (c *CLI) admin() (user.User, error) {
	snap := c.App.Deps.Store.Snapshot()
	if c.AdminEmail != "" {
		u, ok := snap.UserByEmail(c.AdminEmail)
		if !ok {
			return user.User{}, fmt.Errorf("%w: %s", user.ErrUserNotFound, c.AdminEmail)
		}
		return u, nil
	}
	for _, u := range snap.Users {
		if u.IsAdmin() {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("no admin account in the ledger: %w", domain.ErrNotFound)
}

func (c *CLI) done(format string, args ...any) error {
	_, err := green.Fprintf(c.Out, "✔ "+format+"\n", args...)
	return err
}

func (c *CLI) truncate(s string) string {
	// Leave room for the fixed columns.
	limit := c.Width - 70
	if c.Width == 0 || limit < 16 || len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}

func parseVerdict(s string) (domain.Decision, error) {
	switch strings.ToLower(s) {
	case "approve":
		return domain.DecisionApproved, nil
	case "reject":
		return domain.DecisionRejected, nil
	}
	return domain.ParseDecision(s)
}

func urgencyLabel(u request.Urgency) string {
	switch u {
	case request.UrgencyHigh:
		return red.Sprint(u.String())
	case request.UrgencyMedium:
		return yellow.Sprint(u.String())
	}
	return green.Sprint(u.String())
}

func actionLabel(action string) string {
	if strings.HasPrefix(action, "REJECTED") {
		return red.Sprint(action)
	}
	return green.Sprint(action)
}
