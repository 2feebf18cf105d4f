package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gmao/internal/app"
	"gmao/internal/domain"
	"gmao/internal/engine"
)

func equipmentCmd() *cobra.Command {
	eq := &cobra.Command{
		Use:     "equipment",
		Aliases: []string{"eq"},
		Short:   "Manage equipment",
		Long:    "Equipment are the workshop machines. Each carries a unique tag, a status and its maintenance schedule.",
	}
	eq.AddCommand(equipmentCreateCmd())
	eq.AddCommand(equipmentListCmd())
	eq.AddCommand(equipmentShowCmd())
	eq.AddCommand(equipmentUpdateCmd())
	eq.AddCommand(equipmentDeleteCmd())
	eq.AddCommand(equipmentStatsCmd())
	return eq
}

func equipmentCreateCmd() *cobra.Command {
	var in domain.Equipment
	var status, level string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Status = domain.EquipmentStatus(status)
			in.TrainingLevel = domain.TrainingLevel(level)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				eq, err := a.Engine.CreateEquipment(ctx, in)
				if err != nil {
					return err
				}
				return printEquipment(eq)
			})
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "equipment id (generated when empty)")
	cmd.Flags().StringVar(&in.Tag, "tag", "", "tag, unique when set")
	cmd.Flags().StringVar(&in.Name, "name", "", "name")
	cmd.Flags().StringVar(&in.Location, "location", "", "location")
	cmd.Flags().StringVar(&status, "status", "", "operational, maintenance or faulty")
	cmd.Flags().StringVar(&level, "level", "", "training level")
	return cmd
}

func equipmentListCmd() *cobra.Command {
	var f engine.EquipmentFilter
	var status, level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.EquipmentStatus(status)
			f.TrainingLevel = domain.TrainingLevel(level)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListEquipment(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Tag", "Name", "Location", "Status", "Level", "Tasks")
				for _, eq := range items {
					tw.AppendRow(table.Row{eq.ID, eq.Tag, eq.Name, eq.Location, eq.Status, eq.TrainingLevel, len(eq.MaintenanceSchedule)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Text, "text", "", "search in name, tag and location")
	cmd.Flags().StringVar(&f.Location, "location", "", "location filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&level, "level", "", "training level filter")
	return cmd
}

func equipmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show equipment and its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				eq, err := a.Engine.GetEquipment(ctx, args[0])
				if err != nil {
					return err
				}
				return printEquipment(eq)
			})
		},
	}
}

func equipmentUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update equipment fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.EquipmentPatch{
				Tag:      stringFlag(cmd, "tag"),
				Name:     stringFlag(cmd, "name"),
				Location: stringFlag(cmd, "location"),
			}
			if v := stringFlag(cmd, "status"); v != nil {
				s := domain.EquipmentStatus(*v)
				patch.Status = &s
			}
			if v := stringFlag(cmd, "level"); v != nil {
				l := domain.TrainingLevel(*v)
				patch.TrainingLevel = &l
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				eq, err := a.Engine.PatchEquipment(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printEquipment(eq)
			})
		},
	}
	cmd.Flags().String("tag", "", "unique tag")
	cmd.Flags().String("name", "", "name")
	cmd.Flags().String("location", "", "location")
	cmd.Flags().String("status", "", "operational, maintenance or faulty")
	cmd.Flags().String("level", "", "training level (empty clears it)")
	return cmd
}

func equipmentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete equipment and its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.Engine.DeleteEquipment(ctx, args[0])
				if err != nil {
					return err
				}
				return printRemoved("equipment", args[0], removed)
			})
		},
	}
}

func equipmentStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count equipment per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Engine.EquipmentStats(ctx)
				if err != nil {
					return err
				}
				return printCounts(stats)
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage maintenance tasks",
		Long:  "Tasks are dated maintenance operations held in an equipment schedule.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDoneCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskListCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var in domain.MaintenanceTask
	var taskType, level string
	cmd := &cobra.Command{
		Use:   "add <equipment-id>",
		Short: "Add a task to an equipment schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Type = domain.MaintenanceType(taskType)
			in.TrainingLevel = domain.TrainingLevel(level)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.AddTask(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "task id (generated when empty)")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&taskType, "type", string(domain.Preventive), "preventive, corrective or improvement")
	cmd.Flags().StringVar(&level, "level", "", "training level (defaults to the equipment's)")
	cmd.Flags().StringArrayVar(&in.CompetenceCodes, "competence", nil, "competence code (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <equipment-id> <task-id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.TaskPatch{
				Title:       stringFlag(cmd, "title"),
				Description: stringFlag(cmd, "description"),
				Date:        stringFlag(cmd, "date"),
			}
			if v := stringFlag(cmd, "type"); v != nil {
				t := domain.MaintenanceType(*v)
				patch.Type = &t
			}
			if v := stringFlag(cmd, "level"); v != nil {
				l := domain.TrainingLevel(*v)
				patch.TrainingLevel = &l
			}
			if cmd.Flags().Changed("competence") {
				codes, _ := cmd.Flags().GetStringArray("competence")
				patch.CompetenceCodes = codes
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(ctx, args[0], args[1], patch)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().String("title", "", "title")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("date", "", "date, YYYY-MM-DD")
	cmd.Flags().String("type", "", "preventive, corrective or improvement")
	cmd.Flags().String("level", "", "training level")
	cmd.Flags().StringArray("competence", nil, "competence code (repeatable, replaces the list)")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <equipment-id> <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.SetTaskCompleted(ctx, args[0], args[1], !undo)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "reopen the task")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <equipment-id> <task-id>",
		Short: "Remove a task from a schedule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.Engine.DeleteTask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printRemoved("task", args[1], removed)
			})
		},
	}
}

// taskFilterFlags binds the task filters shared by list and calendar.
func taskFilterFlags(cmd *cobra.Command) func() (engine.TaskFilter, error) {
	var equipmentID, level, taskType, completed string
	cmd.Flags().StringVar(&equipmentID, "equipment", "", "equipment id filter")
	cmd.Flags().StringVar(&level, "level", "", "training level filter")
	cmd.Flags().StringVar(&taskType, "type", "", "maintenance type filter")
	cmd.Flags().StringVar(&completed, "completed", "", "true or false")
	return func() (engine.TaskFilter, error) {
		f := engine.TaskFilter{
			EquipmentID:   equipmentID,
			TrainingLevel: domain.TrainingLevel(level),
			Type:          domain.MaintenanceType(taskType),
		}
		if completed != "" {
			v, err := strconv.ParseBool(completed)
			if err != nil {
				return f, fmt.Errorf("--completed must be true or false")
			}
			f.Completed = &v
		}
		return f, nil
	}
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks across all equipment",
	}
	filter := taskFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := filter()
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			items, err := a.Engine.AggregateTasks(ctx, f)
			if err != nil {
				return err
			}
			return printScheduled(items)
		})
	}
	return cmd
}

func calendarCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the tasks of a month by day",
	}
	filter := taskFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := filter()
		if err != nil {
			return err
		}
		now := time.Now()
		if year == 0 {
			year = now.Year()
		}
		if month == 0 {
			month = int(now.Month())
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			cal, err := a.Engine.Calendar(ctx, year, time.Month(month), f)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cal)
			}
			days := make([]int, 0, len(cal.Days))
			for d := range cal.Days {
				days = append(days, d)
			}
			sort.Ints(days)
			tw := newTable("Day", "Equipment", "Task", "Type", "Level", "Done")
			tw.SetTitle(fmt.Sprintf("%s %d", cal.Month, cal.Year))
			for _, d := range days {
				for _, t := range cal.Days[d] {
					tw.AppendRow(table.Row{d, t.EquipmentName, t.Title, t.Type, t.TrainingLevel, t.Completed})
				}
			}
			tw.Render()
			return nil
		})
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (defaults to the current one)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (defaults to the current one)")
	return cmd
}

func upcomingCmd() *cobra.Command {
	var from string
	var days int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show open tasks due in the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if from != "" {
				parsed, err := time.Parse("2006-01-02", from)
				if err != nil {
					return fmt.Errorf("--from must be a YYYY-MM-DD date")
				}
				start = parsed
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.UpcomingTasks(ctx, start, days)
				if err != nil {
					return err
				}
				return printScheduled(items)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (defaults to today)")
	cmd.Flags().IntVar(&days, "days", 7, "window length in days")
	return cmd
}

func printEquipment(eq domain.Equipment) error {
	if viper.GetBool("json") {
		return printJSON(eq)
	}
	tw := newTable("Field", "Value")
	tw.AppendRow(table.Row{"ID", eq.ID})
	tw.AppendRow(table.Row{"Tag", eq.Tag})
	tw.AppendRow(table.Row{"Name", eq.Name})
	tw.AppendRow(table.Row{"Location", eq.Location})
	tw.AppendRow(table.Row{"Status", eq.Status})
	tw.AppendRow(table.Row{"Level", eq.TrainingLevel})
	tw.Render()
	if len(eq.MaintenanceSchedule) == 0 {
		return nil
	}
	tasks := newTable("Task", "Date", "Title", "Type", "Level", "Done", "Competences")
	for _, t := range eq.MaintenanceSchedule {
		tasks.AppendRow(table.Row{t.ID, t.Date, t.Title, t.Type, t.TrainingLevel, t.Completed, strings.Join(t.CompetenceCodes, ",")})
	}
	tasks.Render()
	return nil
}

func printTask(t domain.MaintenanceTask) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	tw := newTable("ID", "Date", "Title", "Type", "Level", "Done", "Competences")
	tw.AppendRow(table.Row{t.ID, t.Date, t.Title, t.Type, t.TrainingLevel, t.Completed, strings.Join(t.CompetenceCodes, ",")})
	tw.Render()
	return nil
}

func printScheduled(items []domain.ScheduledTask) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("Date", "Equipment", "Task", "Title", "Type", "Level", "Done")
	for _, t := range items {
		tw.AppendRow(table.Row{t.Date, t.EquipmentName, t.ID, t.Title, t.Type, t.TrainingLevel, t.Completed})
	}
	tw.Render()
	return nil
}

func printRemoved(kind, id string, removed bool) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{"id": id, "removed": removed})
	}
	if !removed {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	fmt.Printf("%s %s deleted\n", kind, id)
	return nil
}

func printCounts[K ~string](counts map[K]int) error {
	if viper.GetBool("json") {
		return printJSON(counts)
	}
	keys := make([]string, 0, len(counts))
	total := 0
	for k, v := range counts {
		keys = append(keys, string(k))
		total += v
	}
	sort.Strings(keys)
	tw := newTable("Status", "Count")
	for _, k := range keys {
		tw.AppendRow(table.Row{k, counts[K(k)]})
	}
	tw.AppendFooter(table.Row{"Total", total})
	tw.Render()
	return nil
}
