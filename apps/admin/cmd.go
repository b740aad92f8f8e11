package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/storage/database"
)

var (
	gooseRunFunc   = database.RunMigrations // mockable
	isTerminalFunc = term.IsTerminal        // mockable

	errHelp           = errors.New("help provided")
	errAborted        = errors.New("aborted")
	errForceRequired  = errors.New("not a terminal: pass -force to clear derived metrics")
	errCriticalHealth = errors.New("data health is CRITICAL")
)

type commandLine struct {
	conf         *core.Config
	db           *sql.DB
	dismissalSvc *dismissal.Service
	metricsSvc   *metrics.Service
	mailSvc      core.EmailService
	logger       core.Logger

	in  io.Reader
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]          - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  import -file FILE                  - import dismissal events from a JSON export")
	fmt.Fprintln(cli.out, "  aggregate                          - recompute every dashboard metric")
	fmt.Fprintln(cli.out, "  clearmetrics [-force]              - delete every derived metric")
	fmt.Fprintln(cli.out, "  healthcheck [-notify] [-strict]    - print the data health report")
	fmt.Fprintln(cli.out, "  inventory                          - print the data inventory")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "Path to a JSON array of dismissal events.")

	clearCmd := flag.NewFlagSet("clearmetrics", flag.ContinueOnError)
	clearForce := clearCmd.Bool("force", false, "Do not ask for confirmation.")

	healthCmd := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	healthNotify := healthCmd.Bool("notify", false, "Email the report to the configured recipients when it is not HEALTHY.")
	healthStrict := healthCmd.Bool("strict", false, "Fail when the report is CRITICAL.")

	for _, fs := range []*flag.FlagSet{importCmd, clearCmd, healthCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importEvents(ctx, *importFile)
	case "aggregate":
		return cli.aggregate(ctx)
	case "clearmetrics":
		if err := clearCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.clearMetrics(ctx, *clearForce)
	case "healthcheck":
		if err := healthCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.healthCheck(ctx, *healthNotify, *healthStrict)
	case "inventory":
		inv, err := cli.dismissalSvc.GetDataInventory(ctx)
		if err != nil {
			return err
		}
		return cli.printJSON(inv)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirm asks the operator to type "yes". Only interactive sessions can confirm.
func (cli *commandLine) confirm(question string) error {
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errForceRequired
	}
	fmt.Fprintf(cli.out, "%s Type 'yes' to confirm: ", question)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
		return errAborted
	}
	return nil
}
