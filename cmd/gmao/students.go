package main

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gmao/internal/app"
	"gmao/internal/competency"
	"gmao/internal/domain"
	"gmao/internal/engine"
)

func competenceCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "competence",
		Short: "Browse the competence catalog",
	}
	c.AddCommand(competenceListCmd())
	c.AddCommand(competenceFamiliesCmd())
	return c
}

func competenceListCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := competency.Catalog()
			if level != "" {
				items = competency.ApplicableCatalog(domain.TrainingLevel(level))
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := newTable("Code", "Family", "Label", "Levels")
			for _, c := range items {
				levels := make([]string, 0, len(c.ApplicableLevels))
				for _, l := range c.ApplicableLevels {
					levels = append(levels, string(l))
				}
				tw.AppendRow(table.Row{c.Code, c.Family, c.Label, strings.Join(levels, ",")})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "only entries taught at this training level")
	return cmd
}

func competenceFamiliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List competence families",
		RunE: func(cmd *cobra.Command, args []string) error {
			families := competency.Families()
			if viper.GetBool("json") {
				return printJSON(families)
			}
			tw := newTable("Family", "Title")
			for _, f := range families {
				tw.AppendRow(table.Row{f.Key, f.Title})
			}
			tw.Render()
			return nil
		},
	}
}

func studentCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "student",
		Short: "Manage students and their competences",
	}
	s.AddCommand(studentCreateCmd())
	s.AddCommand(studentListCmd())
	s.AddCommand(studentShowCmd())
	s.AddCommand(studentDeleteCmd())
	s.AddCommand(studentAcquireCmd())
	s.AddCommand(studentForgetCmd())
	s.AddCommand(studentReportCmd())
	return s
}

func studentCreateCmd() *cobra.Command {
	var in domain.Student
	var level string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Enrol a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.TrainingLevel = domain.TrainingLevel(level)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.CreateStudent(ctx, in)
				if err != nil {
					return err
				}
				return printStudent(s)
			})
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "student id (generated when empty)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&level, "level", "", "training level")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func studentListCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListStudents(ctx, domain.TrainingLevel(level))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Last name", "First name", "Level", "Acquired", "Global %")
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.LastName, s.FirstName, s.TrainingLevel, len(s.Acquired), competency.GlobalRate(s)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "training level filter")
	return cmd
}

func studentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a student and the acquired competences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.GetStudent(ctx, args[0])
				if err != nil {
					return err
				}
				return printStudent(s)
			})
		},
	}
}

func studentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.Engine.DeleteStudent(ctx, args[0])
				if err != nil {
					return err
				}
				return printRemoved("student", args[0], removed)
			})
		},
	}
}

func studentAcquireCmd() *cobra.Command {
	var in domain.AcquiredCompetence
	var level string
	cmd := &cobra.Command{
		Use:   "acquire <student-id> <code>",
		Short: "Record an acquired competence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Code = args[1]
			in.AcquisitionLevel = domain.AcquisitionLevel(level)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.RecordCompetence(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printStudent(s)
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", string(domain.AcquisitionDiscovery), "discovery, application or mastery")
	cmd.Flags().StringVar(&in.ValidationDate, "date", "", "validation date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&in.Context, "context", "", "where the competence was shown")
	cmd.Flags().StringVar(&in.ValidatedBy, "by", "", "validating instructor")
	cmd.Flags().StringArrayVar(&in.RelatedMissions, "mission", nil, "related mission id (repeatable)")
	return cmd
}

func studentForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <student-id> <code>",
		Short: "Remove an acquired competence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.Engine.RemoveCompetence(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printRemoved("competence", args[1], removed)
			})
		},
	}
}

func studentReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <student-id>",
		Short: "Show acquisition rates per family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r, err := a.Engine.StudentReport(ctx, args[0])
				if err != nil {
					return err
				}
				return printReport(r)
			})
		},
	}
}

func printStudent(s domain.Student) error {
	if viper.GetBool("json") {
		return printJSON(s)
	}
	tw := newTable("Field", "Value")
	tw.AppendRow(table.Row{"ID", s.ID})
	tw.AppendRow(table.Row{"Name", s.FirstName + " " + s.LastName})
	tw.AppendRow(table.Row{"Level", s.TrainingLevel})
	tw.Render()
	if len(s.Acquired) == 0 {
		return nil
	}
	acq := newTable("Code", "Level", "Date", "Validated by", "Context")
	for _, a := range s.Acquired {
		acq.AppendRow(table.Row{a.Code, a.AcquisitionLevel, a.ValidationDate, a.ValidatedBy, a.Context})
	}
	acq.Render()
	return nil
}

func printReport(r engine.Report) error {
	if viper.GetBool("json") {
		return printJSON(r)
	}
	tw := newTable("Family", "Title", "Acquired", "Applicable", "Rate %")
	tw.SetTitle(r.Student.FirstName + " " + r.Student.LastName + " (" + string(r.Student.TrainingLevel) + ")")
	for _, f := range r.Families {
		tw.AppendRow(table.Row{f.Family, f.Title, f.Acquired, f.Applicable, f.Rate})
	}
	tw.AppendFooter(table.Row{"", "Global", "", "", r.Global})
	tw.Render()
	return nil
}
