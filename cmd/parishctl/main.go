// Command parishctl runs maintenance tasks against the parish database.
//
// Usage:
//
//	parishctl migrate
//	parishctl create-user -email admin@example.com -name Admin -role ADMIN [-generate]
//	parishctl import-calendar -json data/calendar.json
//	parishctl normalize-dates
//	parishctl backup create|list|prune|restore NAME|apply
//	parishctl paschalion 2025
//	parishctl coverage -year 2025
//
// Settings come from the same environment (and .env file) as the server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sethvargo/go-password/password"
	"github.com/urfave/cli/v2"

	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/config"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
)

func main() {
	app := &cli.App{
		Name:  "parishctl",
		Usage: "Maintenance tasks for the parish API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides DATABASE_PATH)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Debug logging"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			createUserCommand(),
			importCalendarCommand(),
			normalizeDatesCommand(),
			backupCommand(),
			paschalionCommand(),
			coverageCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("parishctl failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// env is what every command needs: configuration, a logger and, once opened,
// the migrated database.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

// setup loads configuration and, when openDB is set, opens and migrates the
// database.
func setup(c *cli.Context, openDB bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path := c.String("db"); path != "" {
		cfg.DatabasePath = path
	}

	level := cfg.LogLevel
	if c.Bool("verbose") {
		level = "debug"
	}
	e := &env{cfg: cfg, logger: logger.New(os.Stderr, level, cfg.LogFormat)}

	if !openDB {
		return e, nil
	}

	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), e.logger)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(c.Context); err != nil {
		db.Close()
		return nil, err
	}
	e.db = db
	return e, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations.",
		Action: func(c *cli.Context) error {
			e, err := setup(c, false)
			if err != nil {
				return err
			}

			db, err := database.Open(database.DefaultConfig(e.cfg.DatabasePath), e.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", applied)
			return nil
		},
	}
}

const generatedPasswordLen = 20

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create an admin panel account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "role", Value: string(database.RoleAdmin), Usage: "ADMIN, EDITOR or USER"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"PARISH_USER_PASSWORD"}, Usage: "Prompted for when empty"},
			&cli.BoolFlag{Name: "generate", Usage: "Generate a random password and print it once"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c, true)
			if err != nil {
				return err
			}
			defer e.Close()

			pass := c.String("password")
			switch {
			case c.Bool("generate"):
				pass, err = password.Generate(generatedPasswordLen, 4, 0, false, true)
				if err != nil {
					return fmt.Errorf("generate password: %w", err)
				}
				fmt.Printf("generated password: %s\n", pass)
			case pass == "":
				fmt.Print("Password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				pass = strings.TrimRight(line, "\r\n")
			}

			svc := auth.NewService(e.db, e.cfg.JWTSecret, e.cfg.JWTTTL, e.logger)
			u, err := svc.CreateUser(c.Context, auth.NewUser{
				Email:    c.String("email"),
				Name:     c.String("name"),
				Password: pass,
				Role:     database.Role(strings.ToUpper(c.String("role"))),
			})
			if err != nil {
				return err
			}
			fmt.Printf("created user %d <%s> with role %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
}

func importCalendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-calendar",
		Usage: "Load calendar days, saints, readings and services from a JSON file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "json", Required: true, Usage: "Path to the calendar JSON file"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c, true)
			if err != nil {
				return err
			}
			defer e.Close()

			raw, err := os.ReadFile(c.String("json"))
			if err != nil {
				return fmt.Errorf("read json: %w", err)
			}
			var data calendar.ImportData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse json: %w", err)
			}

			svc := calendar.NewService(e.db, e.cfg.Location(), e.logger)
			stats, err := svc.Import(c.Context, data)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d day(s), %d saint(s), %d reading(s), %d service(s)\n",
				stats.Days, stats.Saints, stats.Readings, stats.Schedules)
			return nil
		},
	}
}

func normalizeDatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "normalize-dates",
		Usage: "Move calendar days stored at UTC midnight to local midnight.",
		Action: func(c *cli.Context) error {
			e, err := setup(c, true)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := calendar.NewService(e.db, e.cfg.Location(), e.logger)
			res, err := svc.NormalizeLegacyDays(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("moved %d day(s), skipped %d already present\n", res.Moved, res.Skipped)
			return nil
		},
	}
}

func paschalionCommand() *cli.Command {
	return &cli.Command{
		Name:      "paschalion",
		Usage:     "Print Pascha and the movable feasts of a year.",
		ArgsUsage: "YEAR",
		Action: func(c *cli.Context) error {
			year, err := strconv.Atoi(c.Args().First())
			if err != nil {
				return fmt.Errorf("year must be a number, got %q", c.Args().First())
			}
			p, err := calendar.PaschalionFor(year)
			if err != nil {
				return err
			}
			fmt.Printf("Pascha %d: %s\n", p.Year, p.Pascha)
			for _, f := range p.Feasts {
				fmt.Printf("  %s  %-40s %+d\n", f.Date, f.Name, f.Offset)
			}
			return nil
		},
	}
}

// withEnv adapts an action that needs an opened database.
func withEnv(fn func(ctx context.Context, e *env, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup(c, true)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(c.Context, e, c)
	}
}
