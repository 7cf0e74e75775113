// Command referralctl is a terminal client for the referral API.
// The session token is kept in a local SQLite file between runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/akamensky/argparse"
	"github.com/dealerreferral/backend/internal/client"
	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
)

func main() {
	parser := argparse.NewParser("referralctl", "Submit and track dealership referrals")
	serverURL := parser.String("s", "server", &argparse.Options{Help: "Referral API base URL", Default: envOr("REFERRAL_API_URL", "http://localhost:8080")})
	storePath := parser.String("", "store", &argparse.Options{Help: "Session database file", Default: defaultStorePath()})
	timeout := parser.Int("", "timeout", &argparse.Options{Help: "Request timeout in seconds", Default: int(client.DefaultTimeout.Seconds())})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Log every request", Default: false})

	signupCmd := parser.NewCommand("signup", "Create an account and log in")
	signupName := signupCmd.String("n", "name", &argparse.Options{Help: "Display name"})
	signupEmail := signupCmd.String("e", "email", &argparse.Options{Help: "Email address"})

	loginCmd := parser.NewCommand("login", "Log in and store the session")
	loginEmail := loginCmd.String("e", "email", &argparse.Options{Help: "Email address"})

	logoutCmd := parser.NewCommand("logout", "Log out and forget the session")
	whoamiCmd := parser.NewCommand("whoami", "Show the logged in identity")

	referCmd := parser.NewCommand("refer", "Submit a referral")
	referFirst := referCmd.String("f", "first-name", &argparse.Options{Help: "First name"})
	referLast := referCmd.String("l", "last-name", &argparse.Options{Help: "Last name"})
	referPhone := referCmd.String("p", "phone", &argparse.Options{Help: "Phone number"})
	referEmail := referCmd.String("e", "email", &argparse.Options{Help: "Email address"})
	referVehicle := referCmd.Selector("", "vehicle", []string{"new", "used"}, &argparse.Options{Help: "New or used vehicle"})
	referBrand := referCmd.String("b", "brand", &argparse.Options{Help: "Vehicle brand"})
	referModel := referCmd.String("m", "model", &argparse.Options{Help: "Vehicle model"})

	countCmd := parser.NewCommand("count", "Show how many referrals you have submitted")

	listCmd := parser.NewCommand("referrals", "List your referrals")
	listStatus := listCmd.Selector("", "status", []string{"All", "Pending", "Booked", "Closed", "Lost"}, &argparse.Options{Help: "Filter by status", Default: "All"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(*storePath), 0o700); err != nil {
		fatal(err)
	}
	store, err := client.OpenSQLiteStore(ctx, *storePath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	cli := &app{
		api:    client.NewAPIClient(*serverURL, client.NewSession(store), time.Duration(*timeout) * time.Second, logger),
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		prompt: os.Stderr,
	}

	switch {
	case signupCmd.Happened():
		err = cli.signup(ctx, *signupName, *signupEmail)
	case loginCmd.Happened():
		err = cli.login(ctx, *loginEmail)
	case logoutCmd.Happened():
		err = cli.logout(ctx)
	case whoamiCmd.Happened():
		err = cli.whoami(ctx)
	case referCmd.Happened():
		err = cli.refer(ctx, &models.CreateReferralRequest{
			FirstName:     *referFirst,
			LastName:      *referLast,
			PhoneNumber:   *referPhone,
			Email:         *referEmail,
			VehicleStatus: *referVehicle,
			VehicleBrand:  *referBrand,
			VehicleModel:  *referModel,
		})
	case countCmd.Happened():
		err = cli.count(ctx)
	case listCmd.Happened():
		err = cli.referrals(ctx, *listStatus)
	}

	if err != nil {
		fatal(err)
	}
}

// app runs one command against the API
type app struct {
	api    *client.APIClient
	in     *bufio.Reader
	out    io.Writer
	prompt io.Writer
}

func (a *app) signup(ctx context.Context, name, email string) error {
	email, err := valueOrPrompt(email, a.in, a.prompt, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.prompt)
	if err != nil {
		return err
	}

	if err := a.api.Signup(ctx, &models.SignupRequest{Name: name, Email: email, Password: password}); err != nil {
		return err
	}
	return a.landing(ctx)
}

func (a *app) login(ctx context.Context, email string) error {
	email, err := valueOrPrompt(email, a.in, a.prompt, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.prompt)
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, email, password); err != nil {
		return err
	}
	return a.landing(ctx)
}

// landing reports where the app would take the user after authenticating
func (a *app) landing(ctx context.Context) error {
	dest, err := a.api.Session().Destination(ctx)
	if err != nil {
		return err
	}
	switch dest {
	case client.DestinationAdmin:
		fmt.Fprintln(a.out, "Logged in as administrator")
	default:
		fmt.Fprintln(a.out, "Logged in")
	}
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	claims, err := a.api.Session().CurrentClaims(ctx)
	if err != nil {
		return err
	}
	if claims == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if claims.Name != "" {
		fmt.Fprintf(a.out, "%s <%s> (%s)\n", claims.Name, claims.Email, claims.Role)
	} else {
		fmt.Fprintf(a.out, "%s (%s)\n", claims.Email, claims.Role)
	}
	return nil
}

func (a *app) refer(ctx context.Context, req *models.CreateReferralRequest) error {
	var err error
	if req.FirstName, err = valueOrPrompt(req.FirstName, a.in, a.prompt, "First name"); err != nil {
		return err
	}
	if req.LastName, err = valueOrPrompt(req.LastName, a.in, a.prompt, "Last name"); err != nil {
		return err
	}
	if req.PhoneNumber, err = valueOrPrompt(req.PhoneNumber, a.in, a.prompt, "Phone number"); err != nil {
		return err
	}

	id, err := a.api.CreateReferral(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Referral %d submitted\n", id)
	return nil
}

func (a *app) count(ctx context.Context) error {
	total, err := a.api.ReferralCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total referrals: %d\n", total)
	return nil
}

func (a *app) referrals(ctx context.Context, status string) error {
	referrals, err := a.api.ListReferrals(ctx, status)
	if err != nil {
		return err
	}
	if len(referrals) == 0 {
		fmt.Fprintln(a.out, "No referrals")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tVEHICLE\tSTATUS\tCREATED")
	for _, r := range referrals {
		vehicle := r.VehicleStatus
		if r.VehicleBrand != "" || r.VehicleModel != "" {
			vehicle = fmt.Sprintf("%s %s %s", r.VehicleStatus, r.VehicleBrand, r.VehicleModel)
		}
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FirstName, r.LastName, r.PhoneNumber, vehicle, r.Status, r.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func fatal(err error) {
	if errors.Is(err, client.ErrSessionExpired) {
		fmt.Fprintln(os.Stderr, "Session expired. Run `referralctl login` again.")
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "referralctl.db"
	}
	return filepath.Join(dir, "referralctl", "session.db")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
