// Command clipctl administers a moneyclip data directory.
//
// Commands:
//
//	encrypt            Encrypt every document with a password
//	decrypt            Remove encryption
//	token <user>       Issue an API token signed with CLIP_JWT_SECRET
//	seed [user]        Write a sample plan for a user
//	snapshot           Record today's daily clip for every user
//	version            Print build information
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"moneyclip/internal/auth"
	"moneyclip/internal/config"
	"moneyclip/internal/models"
	"moneyclip/internal/services/clip"
	"moneyclip/internal/services/planstore"
	"moneyclip/internal/services/scheduler"
	"moneyclip/internal/services/storage"
	"moneyclip/internal/version"
)

// passwordFunc returns the data password; prompts when confirm is set ask twice
type passwordFunc func(prompt string, confirm bool) (string, error)

// cli carries what every command needs
type cli struct {
	cfg      *config.Config
	out      io.Writer
	log      *logrus.Entry
	password passwordFunc
	now      func() time.Time
}

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	c := &cli{
		cfg:      cfg,
		out:      os.Stdout,
		log:      logrus.NewEntry(logger),
		password: promptPassword(cfg.Password),
		now:      time.Now,
	}
	if err := c.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "clipctl: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) run(args []string) error {
	if len(args) == 0 {
		c.usage()
		return nil
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "encrypt":
		return c.encrypt()
	case "decrypt":
		return c.decrypt()
	case "token":
		return c.token(rest)
	case "seed":
		return c.seed(rest)
	case "snapshot":
		return c.snapshot()
	case "version":
		fmt.Fprintln(c.out, version.Get())
		return nil
	case "help", "-h", "--help":
		c.usage()
		return nil
	default:
		c.usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.out, "Usage: clipctl <command> [options]")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  encrypt               Encrypt the data directory")
	fmt.Fprintln(c.out, "  decrypt               Decrypt the data directory")
	fmt.Fprintln(c.out, "  token [-ttl 720h] <user>")
	fmt.Fprintln(c.out, "                        Issue an API token")
	fmt.Fprintln(c.out, "  seed [user]           Write a sample plan (default user when omitted)")
	fmt.Fprintln(c.out, "  snapshot              Record today's daily clip for every user")
	fmt.Fprintln(c.out, "  version               Print build information")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Environment: CLIP_DATA_DIR, CLIP_PASSWORD, CLIP_JWT_SECRET, CLIP_DEFAULT_USER")
}

func (c *cli) openStorage() (*storage.Storage, error) {
	if c.cfg.Backend != config.BackendFile {
		return nil, fmt.Errorf("command needs the file backend, configured backend is %q", c.cfg.Backend)
	}
	return storage.New(c.cfg.DataDirectory, c.log)
}

// unlocked opens the data directory, unlocking it when it is encrypted
func (c *cli) unlocked() (*storage.Storage, error) {
	st, err := c.openStorage()
	if err != nil {
		return nil, err
	}
	if !st.IsEncrypted() {
		return st, nil
	}
	password, err := c.password("Data password: ", false)
	if err != nil {
		return nil, err
	}
	if err := st.Unlock(password); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *cli) encrypt() error {
	st, err := c.openStorage()
	if err != nil {
		return err
	}
	if st.IsEncrypted() {
		return errors.New("data directory is already encrypted")
	}
	password, err := c.password("New data password: ", true)
	if err != nil {
		return err
	}
	if err := st.EnableEncryption(password); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Encrypted %s\n", st.BaseDir())
	return nil
}

func (c *cli) decrypt() error {
	st, err := c.openStorage()
	if err != nil {
		return err
	}
	if !st.IsEncrypted() {
		return errors.New("data directory is not encrypted")
	}
	password, err := c.password("Data password: ", false)
	if err != nil {
		return err
	}
	if err := st.DisableEncryption(password); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Decrypted %s\n", st.BaseDir())
	return nil
}

func (c *cli) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(c.out)
	ttl := fs.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: clipctl token [-ttl 720h] <user>")
	}
	userID := fs.Arg(0)
	if !planstore.ValidUserID(userID) {
		return fmt.Errorf("invalid user id %q", userID)
	}
	if c.cfg.JWTSecret == "" {
		return errors.New("CLIP_JWT_SECRET is not set")
	}
	signed, err := auth.New(c.cfg.JWTSecret, "", c.log).IssueToken(userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, signed)
	return nil
}

func (c *cli) seed(args []string) error {
	userID := c.cfg.DefaultUser
	if len(args) > 0 {
		userID = args[0]
	}
	st, err := c.unlocked()
	if err != nil {
		return err
	}
	store := planstore.New(st, c.log)
	if err := store.ReplacePlan(context.Background(), userID, samplePlan(models.DateOf(c.now()))); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Seeded sample plan for %s\n", userID)
	return nil
}

func (c *cli) snapshot() error {
	st, err := c.unlocked()
	if err != nil {
		return err
	}
	store := planstore.New(st, c.log)
	svc := clip.NewService(store, c.cfg.TimelineMaxDays, c.log,
		clip.WithSnapshots(store), clip.WithClock(c.now))
	return scheduler.New(svc, store, nil, models.Money{}, c.log).RunOnce(context.Background())
}

// samplePlan builds a month of typical records around today
func samplePlan(today models.Date) *planstore.Plan {
	money := models.MoneyFromString
	firstOfNext := today.EndOfMonth().AddDays(1)
	return &planstore.Plan{
		Accounts: []models.Account{
			{Name: "Everyday checking", CurrentBalance: money("1850.00"), AccountType: models.Checking, IsPrimary: true, UpdatedAt: today},
			{Name: "Emergency fund", CurrentBalance: money("4200.00"), AccountType: models.Savings, UpdatedAt: today},
		},
		Expenses: []models.PlannedExpense{
			{Name: "Rent", Amount: money("1200.00"), DueDate: firstOfNext, Category: "housing",
				IsRecurring: true, RecurrenceFrequency: models.Monthly},
			{Name: "Electric bill", Amount: money("85.40"), DueDate: today.AddDays(5),
				IsRecurring: true, RecurrenceFrequency: models.Monthly},
			{Name: "Internet", Amount: money("60.00"), DueDate: today.AddDays(9),
				IsRecurring: true, RecurrenceFrequency: models.Monthly},
			{Name: "Car insurance premium", Amount: money("540.00"), DueDate: today.AddDays(20),
				IsRecurring: true, RecurrenceFrequency: models.Quarterly},
			{Name: "Dentist copay", Amount: money("45.00"), DueDate: today.AddDays(3)},
		},
		Income: []models.PlannedIncome{
			{Name: "Freelance invoice", Amount: money("350.00"), ExpectedDate: today.AddDays(12), Source: "freelance"},
		},
		Paychecks: []models.PaycheckSchedule{
			{Name: "Payroll", Amount: money("2100.00"), Frequency: models.BiWeekly, NextDate: today.AddDays(4), IsActive: true},
		},
	}
}

// promptPassword returns env when set, otherwise reads from the terminal
func promptPassword(env string) passwordFunc {
	return func(prompt string, confirm bool) (string, error) {
		if env != "" {
			return env, nil
		}
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("no terminal for password prompt; set CLIP_PASSWORD")
		}
		read := func(p string) (string, error) {
			fmt.Fprint(os.Stderr, p)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(b), err
		}
		password, err := read(prompt)
		if err != nil {
			return "", err
		}
		if confirm {
			again, err := read("Confirm password: ")
			if err != nil {
				return "", err
			}
			if again != password {
				return "", errors.New("passwords do not match")
			}
		}
		return password, nil
	}
}
