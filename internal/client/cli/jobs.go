package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/client/services"
	"github.com/dmitrijs2005/applytrack/internal/validate"
)

const (
	usageStatus = "status <id> <saved|applied|interview|offer|rejected>"
	usageRmJob  = "rmjob <id>"
)

func (a *App) Jobs(ctx context.Context) error {
	jobs, err := a.Deps.Jobs.List(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		a.println("No jobs yet. Use 'addjob' to track one.")
		return nil
	}
	a.printJobs(jobs)
	a.println(statsLine(services.Stats(jobs)))
	return nil
}

func (a *App) printJobs(jobs []models.Job) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tTITLE\tSTATUS\tFIT\tDATE")
	for _, j := range jobs {
		company := j.Company
		if j.HighPriority {
			company = "* " + company
		}
		date := ""
		if d := j.Date(); !d.IsZero() {
			date = d.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\n", j.ID, company, j.Title, j.Status, j.Fit, date)
	}
	_ = tw.Flush()
}

func statsLine(stats map[models.JobStatus]int) string {
	parts := make([]string, 0, len(models.JobStatuses))
	for _, s := range models.JobStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, stats[s]))
	}
	return strings.Join(parts, " | ")
}

// AddJob prompts for a new application. Validation runs before anything is
// sent.
func (a *App) AddJob(ctx context.Context) error {
	var j models.Job
	var err error
	if j.Company, err = a.prompt("Company"); err != nil {
		return err
	}
	if j.Title, err = a.prompt("Title"); err != nil {
		return err
	}
	status, err := a.prompt("Status [saved]")
	if err != nil {
		return err
	}
	if j.Location, err = a.prompt("Location"); err != nil {
		return err
	}
	if j.URL, err = a.prompt("Posting URL"); err != nil {
		return err
	}
	fit, err := a.prompt("Fit 0-100 [0]")
	if err != nil {
		return err
	}

	j.Status = models.JobStatus(strings.ToLower(status))
	v := validate.New()
	if fit != "" {
		n, perr := strconv.Atoi(fit)
		v.Custom("fit", perr != nil, "must be a number")
		j.Fit = n
	}
	if err := v.Err(); err != nil {
		return err
	}

	created, err := a.Deps.Jobs.Create(ctx, j)
	if err != nil {
		return err
	}
	a.printf("Added %s at %s (%s).\n", created.Title, created.Company, created.ID)
	return nil
}

func (a *App) SetStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage(usageStatus)
	}
	status, ok := models.ParseJobStatus(args[1])
	if !ok {
		return errUsage(usageStatus)
	}
	j, err := a.Deps.Jobs.SetStatus(ctx, args[0], status)
	if err != nil {
		return err
	}
	a.printf("%s at %s is now %s.\n", j.Title, j.Company, j.Status)
	return nil
}

func (a *App) RemoveJob(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage(usageRmJob)
	}
	if err := a.Deps.Jobs.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.println("Deleted job", args[0]+".")
	return nil
}
