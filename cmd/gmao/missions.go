package main

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gmao/internal/app"
	"gmao/internal/domain"
	"gmao/internal/engine"
)

func missionCmd() *cobra.Command {
	m := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions",
		Long:  "Missions are work orders on an equipment. Statuses go to_assign -> assigned -> in_progress -> to_validate -> completed; cancelled is the exit.",
	}
	m.AddCommand(missionCreateCmd())
	m.AddCommand(missionListCmd())
	m.AddCommand(missionShowCmd())
	m.AddCommand(missionUpdateCmd())
	m.AddCommand(missionStatusCmd())
	m.AddCommand(missionDeleteCmd())
	m.AddCommand(missionStatsCmd())
	return m
}

func missionCreateCmd() *cobra.Command {
	var d engine.MissionDraft
	var missionType, status, priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Type = domain.MaintenanceType(missionType)
			d.Status = domain.MissionStatus(status)
			d.Priority = domain.Priority(priority)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.CreateMission(ctx, d)
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
	cmd.Flags().StringVar(&missionType, "type", string(domain.Corrective), "preventive, corrective or improvement")
	cmd.Flags().StringVar(&d.Title, "title", "", "title")
	cmd.Flags().StringVar(&d.Description, "description", "", "description")
	cmd.Flags().StringVar(&d.EquipmentID, "equipment", "", "equipment id")
	cmd.Flags().StringVar(&status, "status", "", "initial status (defaults to to_assign)")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityNormal), "low, normal or high")
	cmd.Flags().StringArrayVar(&d.AssignedTo, "assign", nil, "student id (repeatable)")
	cmd.Flags().StringVar(&d.PlannedDate, "planned", "", "planned date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("equipment")
	return cmd
}

func missionListCmd() *cobra.Command {
	var f engine.MissionFilter
	var missionType, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Type = domain.MaintenanceType(missionType)
			f.Status = domain.MissionStatus(status)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListMissions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Equipment", "Type", "Status", "Priority", "Assigned", "Planned")
				for _, m := range items {
					tw.AppendRow(table.Row{m.ID, m.Title, m.EquipmentName, m.Type, m.Status, m.Priority, strings.Join(m.AssignedTo, ","), m.PlannedDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Text, "text", "", "search in title, description and equipment name")
	cmd.Flags().StringVar(&missionType, "type", "", "type filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.EquipmentID, "equipment", "", "equipment id filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assigned-to", "", "student id filter")
	return cmd
}

func missionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.GetMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
}

func missionUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update mission fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.GetMission(ctx, args[0])
				if err != nil {
					return err
				}
				if v := stringFlag(cmd, "title"); v != nil {
					m.Title = *v
				}
				if v := stringFlag(cmd, "description"); v != nil {
					m.Description = *v
				}
				if v := stringFlag(cmd, "type"); v != nil {
					m.Type = domain.MaintenanceType(*v)
				}
				if v := stringFlag(cmd, "priority"); v != nil {
					m.Priority = domain.Priority(*v)
				}
				if v := stringFlag(cmd, "equipment"); v != nil {
					m.EquipmentID = *v
					m.EquipmentName = ""
				}
				if v := stringFlag(cmd, "planned"); v != nil {
					m.PlannedDate = *v
				}
				if cmd.Flags().Changed("assign") {
					m.AssignedTo, _ = cmd.Flags().GetStringArray("assign")
				}
				m, err = a.Engine.UpdateMission(ctx, m)
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
	cmd.Flags().String("title", "", "title")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("type", "", "preventive, corrective or improvement")
	cmd.Flags().String("priority", "", "low, normal or high")
	cmd.Flags().String("equipment", "", "equipment id")
	cmd.Flags().String("planned", "", "planned date, YYYY-MM-DD")
	cmd.Flags().StringArray("assign", nil, "student id (repeatable, replaces the list)")
	return cmd
}

func missionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a mission to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.SetMissionStatus(ctx, args[0], domain.MissionStatus(args[1]))
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
}

func missionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.Engine.DeleteMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printRemoved("mission", args[0], removed)
			})
		},
	}
}

func missionStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count missions per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Engine.MissionStats(ctx)
				if err != nil {
					return err
				}
				return printCounts(stats)
			})
		},
	}
}

func printMission(m domain.Mission) error {
	if viper.GetBool("json") {
		return printJSON(m)
	}
	tw := newTable("Field", "Value")
	tw.AppendRow(table.Row{"ID", m.ID})
	tw.AppendRow(table.Row{"Title", m.Title})
	tw.AppendRow(table.Row{"Type", m.Type})
	tw.AppendRow(table.Row{"Status", m.Status})
	tw.AppendRow(table.Row{"Priority", m.Priority})
	tw.AppendRow(table.Row{"Equipment", strings.TrimSpace(m.EquipmentName + " (" + m.EquipmentID + ")")})
	tw.AppendRow(table.Row{"Assigned", strings.Join(m.AssignedTo, ", ")})
	tw.AppendRow(table.Row{"Planned", m.PlannedDate})
	tw.AppendRow(table.Row{"Created", m.CreatedAt.Format("2006-01-02 15:04")})
	tw.AppendRow(table.Row{"Updated", m.UpdatedAt.Format("2006-01-02 15:04")})
	if m.Description != "" {
		tw.AppendRow(table.Row{"Description", m.Description})
	}
	tw.Render()
	return nil
}
