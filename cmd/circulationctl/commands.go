package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func integrityCommand() *cli.Command {
	return &cli.Command{
		Name:  "integrity",
		Usage: "compare stored availability against open loans",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "report books whose available copies disagree with their open loans",
				Action: func(c *cli.Context) error {
					a, err := getApp(c)
					if err != nil {
						return err
					}
					issues, err := a.ledger.CheckIntegrity(c.Context)
					if err != nil {
						return err
					}
					if len(issues) == 0 {
						printf(c, "No integrity issues found\n")
						return nil
					}
					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "BOOK\tTITLE\tTOTAL\tOPEN\tSTORED\tEXPECTED")
					for _, i := range issues {
						fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\n", i.BookID, i.Title, i.TotalCopies, i.OpenLoans, i.AvailableCopies, i.ExpectedAvailable)
					}
					if err := w.Flush(); err != nil {
						return errors.WithStack(err)
					}
					return cli.Exit(fmt.Sprintf("%d books need repair", len(issues)), 1)
				},
			},
			{
				Name:  "repair",
				Usage: "recompute available copies and status from open loans",
				Action: func(c *cli.Context) error {
					a, err := getApp(c)
					if err != nil {
						return err
					}
					repaired, err := a.ledger.RepairIntegrity(c.Context)
					if err != nil {
						return err
					}
					printf(c, "Repaired %d books\n", len(repaired))
					return nil
				},
			},
		},
	}
}

func pinCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-pin",
		Usage: "set the desk PIN, replacing any existing one",
		Action: func(c *cli.Context) error {
			a, err := getApp(c)
			if err != nil {
				return err
			}
			pin, err := promptPIN(c, "New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := promptPIN(c, "Confirm PIN: ")
			if err != nil {
				return err
			}
			if pin != confirm {
				return cli.Exit("PINs do not match", 1)
			}
			if err := a.auth.ResetPIN(c.Context, pin); err != nil {
				return err
			}
			printf(c, "PIN updated; existing sessions have been signed out\n")
			return nil
		},
	}
}

func promptPIN(c *cli.Context, prompt string) (string, error) {
	printf(c, "%s", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	printf(c, "\n")
	if err != nil {
		return "", errors.Wrap(err, "failed to read pin")
	}
	return strings.TrimSpace(string(b)), nil
}

var outFlag = &cli.StringFlag{
	Name:    "out",
	Aliases: []string{"o"},
	Usage:   "write to `PATH` instead of a timestamped file in the export directory",
}

func exportCommand() *cli.Command {
	sub := func(name, jobType string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: "export " + name + " as CSV",
			Flags: []cli.Flag{outFlag},
			Action: func(c *cli.Context) error {
				a, err := getApp(c)
				if err != nil {
					return err
				}
				job, err := a.runJob(c, jobType, c.String("out"))
				if err != nil {
					return err
				}
				data := job.DataParsed.(*models.JobExportData)
				printf(c, "Exported %d %s to %s\n", data.Rows, name, data.Path)
				return nil
			},
		}
	}
	return &cli.Command{
		Name:  "export",
		Usage: "export catalogue, members or the ledger to CSV",
		Subcommands: []*cli.Command{
			sub("books", models.JobTypeExportBooks),
			sub("members", models.JobTypeExportMembers),
			sub("transactions", models.JobTypeExportTransactions),
		},
	}
}

func importCommand() *cli.Command {
	sub := func(name, jobType string) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     "import " + name + " from a CSV file",
			ArgsUsage: "<file.csv>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return cli.Exit("expected exactly one CSV file", 2)
				}
				a, err := getApp(c)
				if err != nil {
					return err
				}
				job, err := a.runJob(c, jobType, c.Args().First())
				if err != nil {
					return err
				}
				data := job.DataParsed.(*models.JobImportData)
				printf(c, "Imported %d %s, %d failed\n", data.Imported, name, data.Failed)
				for _, msg := range data.Errors {
					printf(c, "  %s\n", msg)
				}
				if data.Failed > len(data.Errors) {
					printf(c, "  ... see job %d logs for the rest\n", job.ID)
				}
				return nil
			},
		}
	}
	return &cli.Command{
		Name:  "import",
		Usage: "bulk import books or members from CSV",
		Subcommands: []*cli.Command{
			sub("books", models.JobTypeImportBooks),
			sub("members", models.JobTypeImportMembers),
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "write a consistent copy of the database",
		Flags: []cli.Flag{outFlag},
		Action: func(c *cli.Context) error {
			a, err := getApp(c)
			if err != nil {
				return err
			}
			job, err := a.runJob(c, models.JobTypeBackup, c.String("out"))
			if err != nil {
				return err
			}
			printf(c, "Backed up to %s\n", job.DataParsed.(*models.JobBackupData).Path)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print dashboard counters",
		Action: func(c *cli.Context) error {
			a, err := getApp(c)
			if err != nil {
				return err
			}
			stats, err := a.ledger.Stats(c.Context)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Books\t%d\n", stats.TotalBooks)
			fmt.Fprintf(w, "Copies\t%d\n", stats.TotalCopies)
			fmt.Fprintf(w, "Available copies\t%d\n", stats.AvailableCopies)
			fmt.Fprintf(w, "Members\t%d\n", stats.TotalMembers)
			fmt.Fprintf(w, "Active loans\t%d\n", stats.ActiveLoans)
			fmt.Fprintf(w, "Overdue loans\t%d\n", stats.OverdueLoans)
			fmt.Fprintf(w, "Unpaid fines\t%.2f\n", stats.UnpaidFines)
			return errors.WithStack(w.Flush())
		},
	}
}

func overdueCommand() *cli.Command {
	return &cli.Command{
		Name:  "overdue",
		Usage: "list overdue loans, most overdue first",
		Action: func(c *cli.Context) error {
			a, err := getApp(c)
			if err != nil {
				return err
			}
			loans, err := a.ledger.ListOverdueLoans(c.Context)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOAN\tBOOK\tMEMBER\tDUE\tDAYS OVERDUE")
			for _, t := range loans {
				title, code := "", ""
				if t.Book != nil {
					title = t.Book.Title
				}
				if t.Member != nil {
					code = t.Member.MemberCode
				}
				days := 0
				if t.DaysOverdue != nil {
					days = *t.DaysOverdue
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", t.ID, title, code, t.DueDate.Format("2006-01-02"), days)
			}
			return errors.WithStack(w.Flush())
		},
	}
}
