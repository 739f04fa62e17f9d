package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Jduquenne/job-lens/internal/app"
	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/spf13/cobra"
)

type applicationFlags struct {
	company    string
	title      string
	location   string
	email      string
	link       string
	date       string
	status     string
	notes      string
	attachment string
	salary     string
	contract   string
	remote     string
	tech       []string
	priority   string
	source     string
	archived   bool
}

func (f *applicationFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.company, "company", "", "Company name")
	flags.StringVar(&f.title, "title", "", "Job title")
	flags.StringVar(&f.location, "location", "", "Job location")
	flags.StringVar(&f.email, "email", "", "Contact email")
	flags.StringVar(&f.link, "link", "", "Link to the job offer")
	flags.StringVar(&f.date, "date", "", "Application date (YYYY-MM-DD)")
	flags.StringVar(&f.status, "status", "", "Status (see joblens labels)")
	flags.StringVar(&f.notes, "notes", "", "Free-form notes")
	flags.StringVar(&f.attachment, "attachment", "", "Attached file name")
	flags.StringVar(&f.salary, "salary", "", "Salary information")
	flags.StringVar(&f.contract, "contract", "", "Contract type")
	flags.StringVar(&f.remote, "remote", "", "Remote policy")
	flags.StringSliceVar(&f.tech, "tech", nil, "Tech stack tag (repeatable)")
	flags.StringVar(&f.priority, "priority", "", "Priority: low, medium or high")
	flags.StringVar(&f.source, "source", "", "Where the offer was found")
	flags.BoolVar(&f.archived, "archived", false, "Mark the application archived")
}

func newAddCommand(deps commandDeps) *cobra.Command {
	var flags applicationFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new job application",
		Example: "  joblens add --company Acme --title \"Backend Engineer\" --location Paris\n" +
			"  joblens add --company Acme --title SRE --location Lyon --status sent --tech go --tech python",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("add does not accept positional arguments")
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				created, err := env.apps.Create(ctx, app.CreateApplicationRequest{
					CompanyName:     flags.company,
					JobTitle:        flags.title,
					Location:        flags.location,
					ContactEmail:    flags.email,
					JobLink:         flags.link,
					ApplicationDate: flags.date,
					Status:          record.Status(flags.status),
					Notes:           flags.notes,
					AttachmentName:  flags.attachment,
					Salary:          flags.salary,
					ContractType:    record.ContractType(flags.contract),
					Remote:          record.Remote(flags.remote),
					TechStack:       flags.tech,
					Priority:        record.Priority(flags.priority),
					Archived:        flags.archived,
					Source:          record.Source(flags.source),
				})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, created)
				}
				if deps.globals.Quiet {
					_, err = fmt.Fprintln(deps.out, created.ID)
					return err
				}
				return printLine(deps, "application added: %s (%s, %s)", created.ID, created.CompanyName, created.JobTitle)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newEditCommand(deps commandDeps) *cobra.Command {
	var flags applicationFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing application",
		Example: "  joblens edit 3f2a --status interview\n" +
			"  joblens edit 3f2a --archived",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("edit requires exactly one application id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := editRequest(cmd, args[0], flags)
			if !patchesAnything(req) {
				return usageErrorf("edit requires at least one field flag")
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				updated, err := env.apps.Edit(ctx, req)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, updated)
				}
				return printLine(deps, "application updated: %s", updated.ID)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func editRequest(cmd *cobra.Command, id string, flags applicationFlags) app.UpdateApplicationRequest {
	changed := cmd.Flags().Changed
	req := app.UpdateApplicationRequest{ID: id}
	stringPatch := func(name, value string) *string {
		if !changed(name) {
			return nil
		}
		return &value
	}
	req.CompanyName = stringPatch("company", flags.company)
	req.JobTitle = stringPatch("title", flags.title)
	req.Location = stringPatch("location", flags.location)
	req.ContactEmail = stringPatch("email", flags.email)
	req.JobLink = stringPatch("link", flags.link)
	req.ApplicationDate = stringPatch("date", flags.date)
	req.Notes = stringPatch("notes", flags.notes)
	req.AttachmentName = stringPatch("attachment", flags.attachment)
	req.Salary = stringPatch("salary", flags.salary)
	if changed("status") {
		value := record.Status(flags.status)
		req.Status = &value
	}
	if changed("contract") {
		value := record.ContractType(flags.contract)
		req.ContractType = &value
	}
	if changed("remote") {
		value := record.Remote(flags.remote)
		req.Remote = &value
	}
	if changed("priority") {
		value := record.Priority(flags.priority)
		req.Priority = &value
	}
	if changed("source") {
		value := record.Source(flags.source)
		req.Source = &value
	}
	if changed("tech") {
		value := append([]string(nil), flags.tech...)
		req.TechStack = &value
	}
	if changed("archived") {
		value := flags.archived
		req.Archived = &value
	}
	return req
}

func patchesAnything(req app.UpdateApplicationRequest) bool {
	return req.CompanyName != nil || req.JobTitle != nil || req.Location != nil ||
		req.ContactEmail != nil || req.JobLink != nil || req.ApplicationDate != nil ||
		req.Status != nil || req.Notes != nil || req.AttachmentName != nil ||
		req.Salary != nil || req.ContractType != nil || req.Remote != nil ||
		req.TechStack != nil || req.Priority != nil || req.Archived != nil ||
		req.Source != nil
}

func newShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show application details",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("show requires exactly one application id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				found, err := env.apps.Show(ctx, args[0])
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, found)
				}
				return printApplicationDetail(deps, *found)
			})
		},
	}
}

func printApplicationDetail(deps commandDeps, a record.Application) error {
	tech := make([]string, 0, len(a.TechStack))
	for _, tag := range a.TechStack {
		tech = append(tech, record.TechLabel(tag))
	}
	rows := [][2]string{
		{"id", a.ID},
		{"company", a.CompanyName},
		{"title", a.JobTitle},
		{"location", a.Location},
		{"date", a.ApplicationDate},
		{"status", a.Status.Label()},
		{"contract", a.ContractType.Label()},
		{"remote", a.Remote.Label()},
		{"priority", a.Priority.Label()},
		{"source", a.Source.Label()},
		{"tech", strings.Join(tech, ", ")},
		{"email", a.ContactEmail},
		{"link", a.JobLink},
		{"salary", a.Salary},
		{"attachment", a.AttachmentName},
		{"archived", fmt.Sprintf("%t", a.Archived)},
		{"notes", a.Notes},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(deps.out, "%-10s %s\n", row[0]+":", row[1]); err != nil {
			return err
		}
	}
	return nil
}

type listFlags struct {
	search   string
	status   string
	contract string
	location string
	from     string
	priority string
	remote   string
	tech     []string
	archived bool
	active   bool
	idsOnly  bool
}

func (f *listFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.search, "search", "", "Case-insensitive search on company, title, location and notes")
	flags.StringVar(&f.status, "status", "", "Filter by status")
	flags.StringVar(&f.contract, "contract", "", "Filter by contract type")
	flags.StringVar(&f.location, "location", "", "Filter by location substring")
	flags.StringVar(&f.from, "from", "", "Only applications on or after this date (YYYY-MM-DD)")
	flags.StringVar(&f.priority, "priority", "", "Filter by priority")
	flags.StringVar(&f.remote, "remote", "", "Filter by remote policy")
	flags.StringSliceVar(&f.tech, "tech", nil, "Require a tech stack tag (repeatable)")
	flags.BoolVar(&f.archived, "archived", false, "Only archived applications")
	flags.BoolVar(&f.active, "active", false, "Only applications that are not archived")
}

func (f listFlags) filter() (record.Filter, error) {
	if f.archived && f.active {
		return record.Filter{}, usageErrorf("--archived and --active are mutually exclusive")
	}
	filter := record.Filter{
		Search:       f.search,
		Status:       record.Status(f.status),
		ContractType: record.ContractType(f.contract),
		Location:     f.location,
		DateFrom:     f.from,
		Priority:     record.Priority(f.priority),
		Remote:       record.Remote(f.remote),
		Tags:         f.tech,
	}
	if f.archived || f.active {
		archived := f.archived
		filter.Archived = &archived
	}
	return filter, nil
}

func newListCommand(deps commandDeps) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List applications, newest first",
		Example: "  joblens ls\n" +
			"  joblens ls --status interview --active\n" +
			"  joblens --json ls --tech go",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("ls does not accept positional arguments")
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				result, err := env.apps.List(ctx, filter)
				if err != nil {
					return err
				}
				for _, failure := range result.Report.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped record %q: %v\n", failure.ID, failure.Err)
				}
				if deps.globals.JSON {
					apps := result.Applications
					if apps == nil {
						apps = []record.Application{}
					}
					return printJSON(deps.out, apps)
				}
				if len(result.Applications) == 0 {
					return printLine(deps, "no applications")
				}
				for _, a := range result.Applications {
					if flags.idsOnly {
						if _, err := fmt.Fprintln(deps.out, a.ID); err != nil {
							return err
						}
						continue
					}
					if _, err := fmt.Fprintf(
						deps.out,
						"%s  %s  %s | %s | %s | %s\n",
						a.ID,
						a.ApplicationDate,
						a.CompanyName,
						a.JobTitle,
						a.Location,
						a.Status.Label(),
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&flags.idsOnly, "ids-only", false, "Only print application ids")
	return cmd
}

func newRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an application",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("rm requires exactly one application id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				if err := env.apps.Delete(ctx, args[0]); err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"deleted": args[0]})
				}
				return printLine(deps, "application removed: %s", args[0])
			})
		},
	}
}

func newStatsCommand(deps commandDeps) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize applications by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("stats does not accept positional arguments")
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				stats, err := env.apps.Stats(ctx, filter)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, stats)
				}
				if _, err := fmt.Fprintf(
					deps.out,
					"total=%d sent=%d interviews=%d offers=%d archived=%d\n",
					stats.Total, stats.Sent, stats.Interviews, stats.Offers, stats.Archived,
				); err != nil {
					return err
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, status := range record.Statuses {
					if _, err := fmt.Fprintf(deps.out, "  %-12s %d\n", status.Label(), stats.ByStatus[status]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newLabelsCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List accepted values for enumerated fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("labels does not accept positional arguments")
			}
			groups := labelGroups()
			if deps.globals.JSON {
				payload := make(map[string][]labelEntry, len(groups))
				for _, group := range groups {
					payload[group.name] = group.entries
				}
				return mapCommandError(printJSON(deps.out, payload))
			}
			for _, group := range groups {
				if _, err := fmt.Fprintf(deps.out, "%s:\n", group.name); err != nil {
					return err
				}
				for _, entry := range group.entries {
					if _, err := fmt.Fprintf(deps.out, "  %-16s %s\n", entry.Value, entry.Label); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

type labelEntry struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type labelGroup struct {
	name    string
	entries []labelEntry
}

func labelGroups() []labelGroup {
	groups := []labelGroup{
		{name: "status", entries: labelEntries(record.Statuses, record.Status.Label)},
		{name: "contract", entries: labelEntries(record.ContractTypes, record.ContractType.Label)},
		{name: "remote", entries: labelEntries(record.Remotes, record.Remote.Label)},
		{name: "priority", entries: labelEntries(record.Priorities, record.Priority.Label)},
		{name: "source", entries: labelEntries(record.Sources, record.Source.Label)},
	}
	tech := make([]string, 0, len(record.TechStackLabels))
	for tag := range record.TechStackLabels {
		tech = append(tech, tag)
	}
	sort.Strings(tech)
	return append(groups, labelGroup{name: "tech", entries: labelEntries(tech, record.TechLabel)})
}

func labelEntries[T ~string](values []T, label func(T) string) []labelEntry {
	out := make([]labelEntry, 0, len(values))
	for _, value := range values {
		out = append(out, labelEntry{Value: string(value), Label: label(value)})
	}
	return out
}
