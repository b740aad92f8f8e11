package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
)

func (cli *commandLine) importEvents(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening events file")
	}
	defer f.Close()

	var events []dismissal.Event
	if err = json.NewDecoder(f).Decode(&events); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	created, err := cli.dismissalSvc.ImportEvents(ctx, events...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d dismissal events\n", len(created))
	return nil
}

func (cli *commandLine) aggregate(ctx context.Context) error {
	res, err := cli.metricsSvc.Aggregate(ctx)
	if err != nil {
		return err
	}
	return cli.printJSON(res)
}

func (cli *commandLine) clearMetrics(ctx context.Context, force bool) error {
	if !force {
		if err := cli.confirm("This deletes every derived metric, top arrival and processed date."); err != nil {
			return err
		}
	}
	res, err := cli.metricsSvc.ClearDerivedData(ctx)
	if err != nil {
		return err
	}
	return cli.printJSON(res)
}

func (cli *commandLine) healthCheck(ctx context.Context, notify, strict bool) error {
	report, err := cli.dismissalSvc.GetDataHealthReport(ctx)
	if err != nil {
		return err
	}
	if err = cli.printJSON(report); err != nil {
		return err
	}

	unhealthy := report.Status == dismissal.StatusWarning || report.Status == dismissal.StatusCritical
	if notify && unhealthy {
		if err = cli.notify(ctx, report); err != nil {
			return err
		}
	}
	if strict && report.Status == dismissal.StatusCritical {
		return errCriticalHealth
	}
	return nil
}

func (cli *commandLine) notify(ctx context.Context, report dismissal.HealthReport) error {
	recipients := cli.conf.HealthReport.Recipients
	if len(recipients) == 0 {
		cli.logger.Warn("health report not sent: no recipients configured")
		return nil
	}
	msg := &core.EmailMessage{
		To:           recipients,
		Subject:      fmt.Sprintf("Dismissal data health: %s (score %d)", report.Status, report.HealthScore),
		TemplateName: "health_report",
		TemplateData: report,
	}
	if err := cli.mailSvc.SendMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "sending health report")
	}
	fmt.Fprintf(cli.out, "health report sent to %d recipients\n", len(recipients))
	return nil
}
