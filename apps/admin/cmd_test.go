package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/services/email"
	"github.com/trezcool/dismissal/storage/database/inmem"
	"github.com/trezcool/dismissal/tests"
)

type testCLI struct {
	*commandLine
	events dismissal.Repository
	mail   interface{ SentMessages() []core.EmailMessage }
	logger *testutil.Logger
	out    *bytes.Buffer
}

func setup(t *testing.T, events ...dismissal.Event) testCLI {
	conf := &core.Config{
		AppName:      "Dismissal",
		Quality:      core.DefaultQualityThresholds(),
		HealthReport: core.HealthReportConfig{Recipients: []mail.Address{{Name: "Ops", Address: "ops@example.com"}}},
	}

	// set up DB & repos
	db := inmemdb.Open()
	eventRepo := inmemdb.NewEventRepository(db)
	store := inmemdb.NewMetricsStore(db)
	if len(events) > 0 {
		testutil.CreateEvents(t, eventRepo, events...)
	}

	logger := new(testutil.Logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	out := new(bytes.Buffer)

	// start CLI
	cli := &commandLine{
		conf:         conf,
		dismissalSvc: dismissal.NewService(eventRepo, conf.Quality, logger, nil),
		metricsSvc: metrics.NewService(
			store,
			metrics.NewAggregator(eventRepo, store, conf.Quality, logger, nil),
			conf.Quality,
			logger,
		),
		mailSvc: mailSvc,
		logger:  logger,
		in:      strings.NewReader(""),
		out:     out,
	}
	return testCLI{commandLine: cli, events: eventRepo, mail: mailSvc, logger: logger, out: out}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "import without file", args: []string{"import"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_index", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_import(t *testing.T) {
	cli := setup(t)
	dir := t.TempDir()

	valid := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[
		{"date": "2024-03-04", "campus_location": "Main", "car_number": 12, "queued_at": 1709564400000,
		 "completed_at": 1709564520000, "wait_time_seconds": 120, "student_ids": ["s1"], "student_names": ["Ada Lovelace"]},
		{"id": "legacy-1", "date": "2024-03-04", "campus_location": "Main", "car_number": 7, "queued_at": 1709564460000,
		 "completed_at": 1709564520000, "wait_time_seconds": 60, "student_ids": ["s2"], "student_names": ["Grace Hopper"]}
	]`), 0o600))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"not": "a list"`), 0o600))

	tests := []cliTest{
		{name: "missing file", args: []string{"import", "-file", filepath.Join(dir, "nope.json")}, wantErrStr: "opening events file: open " + filepath.Join(dir, "nope.json") + ": no such file or directory"},
		{name: "invalid json", args: []string{"import", "-file", broken}, wantErrStr: "decoding " + broken + ": unexpected EOF", extra: 0},
		{name: "import", args: []string{"import", "-file", valid}, extra: 2},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
			if want, ok := tt.extra.(int); ok {
				events, qErr := cli.events.QueryAllEvents(context.Background())
				require.NoError(t, qErr)
				assert.Len(t, events, want)
			}
		})
	}

	events, err := cli.events.QueryAllEvents(context.Background())
	require.NoError(t, err)
	ids := []string{events[0].ID, events[1].ID}
	assert.Contains(t, ids, "legacy-1")
	assert.Contains(t, cli.out.String(), "imported 2 dismissal events")
}

func Test_commandLine_aggregateAndClear(t *testing.T) {
	mon := testutil.Day(2024, time.March, 4, 15, 0)
	cli := setup(t,
		testutil.Event("Main", 1, mon, 120),
		testutil.Event("Main", 2, mon.Add(time.Minute), 60),
	)

	require.NoError(t, cli.run([]string{"admin", "aggregate"}))
	assert.Contains(t, cli.out.String(), `"metrics": 3`)

	type extra struct {
		terminal bool
		input    string
	}
	tests := []cliTest{
		{name: "not a terminal", args: []string{"clearmetrics"}, extra: extra{}, wantErr: errForceRequired},
		{name: "not confirmed", args: []string{"clearmetrics"}, extra: extra{terminal: true, input: "no\n"}, wantErr: errAborted},
		{name: "confirmed", args: []string{"clearmetrics"}, extra: extra{terminal: true, input: "yes\n"}},
		{name: "forced", args: []string{"clearmetrics", "-force"}, extra: extra{}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		ex := tt.extra.(extra)

		isTerminalFunc = func(int) bool { return ex.terminal }
		cli.in = strings.NewReader(ex.input)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
	assert.Len(t, cli.logger.Warnings, 2)
}

func Test_commandLine_healthcheck(t *testing.T) {
	mon := testutil.Day(2024, time.March, 4, 15, 0)
	broken := testutil.Event("Main", 0, mon.Add(2*time.Minute), 60)

	tests := []struct {
		cliTest
		events   []dismissal.Event
		wantSent int
	}{
		{
			cliTest:  cliTest{name: "healthy", args: []string{"healthcheck", "-notify", "-strict"}},
			events:   []dismissal.Event{testutil.Event("Main", 1, mon, 120)},
			wantSent: 0,
		},
		{
			cliTest:  cliTest{name: "critical without notify", args: []string{"healthcheck"}},
			events:   []dismissal.Event{testutil.Event("Main", 1, mon, 120), broken},
			wantSent: 0,
		},
		{
			cliTest:  cliTest{name: "critical notified", args: []string{"healthcheck", "-notify"}},
			events:   []dismissal.Event{testutil.Event("Main", 1, mon, 120), broken},
			wantSent: 1,
		},
		{
			cliTest:  cliTest{name: "critical strict", args: []string{"healthcheck", "-strict"}, wantErr: errCriticalHealth},
			events:   []dismissal.Event{testutil.Event("Main", 1, mon, 120), broken},
			wantSent: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := setup(t, tt.events...)
			checkErr(t, tt.cliTest, cli.run(append([]string{"admin"}, tt.args...)))

			sent := cli.mail.SentMessages()
			require.Len(t, sent, tt.wantSent)
			if tt.wantSent > 0 {
				assert.Equal(t, "Dismissal data health: CRITICAL (score 50)", sent[0].Subject)
				assert.Contains(t, sent[0].TextContent, "records with an invalid car number")
			}
			assert.Contains(t, cli.out.String(), `"status"`)
		})
	}
}

func Test_commandLine_inventory(t *testing.T) {
	mon := testutil.Day(2024, time.March, 4, 15, 0)
	cli := setup(t, testutil.Event("Main", 1, mon, 120), testutil.Event("North", 2, mon, 60))

	require.NoError(t, cli.run([]string{"admin", "inventory"}))
	assert.Contains(t, cli.out.String(), `"total_records": 2`)
	assert.Contains(t, cli.out.String(), `"2024-03": 2`)
}
