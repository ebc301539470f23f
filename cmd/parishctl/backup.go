package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/zapponejosh/parish-api/internal/backup"
)

func backupService(e *env) (*backup.Service, error) {
	return backup.NewService(e.db, e.cfg.BackupDir, e.cfg.UploadDir, e.cfg.BackupKeep, e.logger)
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Create, list, prune and restore backup archives.",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Write a manual backup archive.",
				Action: withEnv(func(ctx context.Context, e *env, c *cli.Context) error {
					svc, err := backupService(e)
					if err != nil {
						return err
					}
					info, err := svc.Create(ctx, backup.TypeManual)
					if err != nil {
						return err
					}
					fmt.Printf("%s (%d bytes)\n", info.Filename, info.Size)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List archives, newest first.",
				Action: withEnv(func(ctx context.Context, e *env, c *cli.Context) error {
					svc, err := backupService(e)
					if err != nil {
						return err
					}
					list, err := svc.List()
					if err != nil {
						return err
					}
					for _, b := range list {
						fmt.Printf("%-60s %-12s %10d  %s\n", b.Filename, b.Type, b.Size, b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
					}
					return nil
				}),
			},
			{
				Name:  "prune",
				Usage: "Delete scheduled archives beyond BACKUP_KEEP.",
				Action: withEnv(func(ctx context.Context, e *env, c *cli.Context) error {
					svc, err := backupService(e)
					if err != nil {
						return err
					}
					removed, err := svc.Prune()
					if err != nil {
						return err
					}
					fmt.Printf("removed %d archive(s)\n", removed)
					return nil
				}),
			},
			{
				Name:      "restore",
				Usage:     "Restore uploads and stage the database from an archive.",
				ArgsUsage: "FILENAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "apply", Usage: "Swap the staged database in right away (server must be stopped)"},
				},
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return fmt.Errorf("archive filename is required")
					}

					e, err := setup(c, true)
					if err != nil {
						return err
					}
					svc, err := backupService(e)
					if err != nil {
						e.Close()
						return err
					}
					res, err := svc.Restore(c.Context, name)
					e.Close()
					if err != nil {
						return err
					}
					fmt.Printf("restored %d upload(s), database staged at %s\n", res.Uploads, res.StagedDB)
					if res.PreRestore != nil {
						fmt.Printf("previous state saved as %s\n", res.PreRestore.Filename)
					}

					if !c.Bool("apply") {
						fmt.Println("the staged database is applied on the next server start")
						return nil
					}
					return applyStaged(e)
				},
			},
			{
				Name:  "apply",
				Usage: "Swap a staged database in (server must be stopped).",
				Action: func(c *cli.Context) error {
					e, err := setup(c, false)
					if err != nil {
						return err
					}
					return applyStaged(e)
				},
			},
		},
	}
}

func applyStaged(e *env) error {
	applied, err := backup.ApplyStaged(e.cfg.DatabasePath)
	if err != nil {
		return err
	}
	if !applied {
		fmt.Println("nothing staged")
		return nil
	}
	e.logger.Info("staged database applied", slog.String("path", e.cfg.DatabasePath))
	fmt.Println("staged database applied")
	return nil
}
