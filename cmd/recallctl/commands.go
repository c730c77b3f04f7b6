package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/factory"
	"github.com/recallhq/recall/internal/logger"
	"github.com/recallhq/recall/internal/model"
	"github.com/recallhq/recall/internal/records"
)

// service resolves the target store from the --store flag, wiring and
// provisioning both stores from environment configuration.
func service(ctx context.Context) (*records.Service, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	stores, err := factory.NewStores(ctx, cfg, logger.New("recallctl"))
	if err != nil {
		return nil, err
	}
	switch storeFlag {
	case "idea":
		return stores.Ideas, nil
	case "memory":
		return stores.Memories, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want idea or memory)", storeFlag)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitTags(csv string) []string {
	if csv == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// filterFromFlags builds the shared metadata filter used by search and list.
func filterFromFlags(cmd *cobra.Command) model.Filter {
	f := model.Filter{}
	f.OwnerID, _ = cmd.Flags().GetString("owner")
	f.Category, _ = cmd.Flags().GetString("category")
	f.Priority, _ = cmd.Flags().GetString("priority")
	f.Status, _ = cmd.Flags().GetString("status")
	if csv, _ := cmd.Flags().GetString("tags"); csv != "" {
		f.Tags = splitTags(csv)
	}
	if cmd.Flags().Changed("conversation") {
		conv, _ := cmd.Flags().GetInt64("conversation")
		f.ConversationID = &conv
	}
	return f
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Filter by owner id")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("priority", "", "Filter by priority")
	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().String("tags", "", "Filter by tags (comma separated, any-of)")
	cmd.Flags().Int64("conversation", 0, "Filter by conversation id")
}

func newProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Provision index schemas for both stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			// NewStores provisions synchronously; reaching here means both
			// classes exist.
			if _, err := factory.NewStores(cmd.Context(), cfg, logger.New("recallctl")); err != nil {
				return err
			}
			fmt.Printf("provisioned %s and %s (policy %s)\n", cfg.IdeaIndex, cfg.MemoryIndex, cfg.IndexPolicy)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			in := model.RecordInput{}
			in.OwnerID, _ = cmd.Flags().GetString("owner")
			in.Title, _ = cmd.Flags().GetString("title")
			in.Content, _ = cmd.Flags().GetString("content")
			in.Category, _ = cmd.Flags().GetString("category")
			in.Priority, _ = cmd.Flags().GetString("priority")
			in.Status, _ = cmd.Flags().GetString("status")
			if csv, _ := cmd.Flags().GetString("tags"); csv != "" {
				in.Tags = splitTags(csv)
			}
			if cmd.Flags().Changed("conversation") {
				conv, _ := cmd.Flags().GetInt64("conversation")
				in.ConversationID = &conv
			}
			if at, _ := cmd.Flags().GetString("remind-at"); at != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--remind-at: %w", err)
				}
				rtype, _ := cmd.Flags().GetString("remind-type")
				msg, _ := cmd.Flags().GetString("remind-message")
				in.Reminders = []model.ReminderInput{{
					Type:         model.ReminderType(rtype),
					ScheduledFor: ts,
					Message:      msg,
				}}
			}
			rec, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
	cmd.Flags().String("owner", "", "Owner id (required)")
	cmd.Flags().String("title", "", "Record title")
	cmd.Flags().String("content", "", "Record body")
	cmd.Flags().String("category", "", "Category (schema default when omitted)")
	cmd.Flags().String("priority", "", "Priority (schema default when omitted)")
	cmd.Flags().String("status", "", "Status (schema default when omitted)")
	cmd.Flags().String("tags", "", "Tags (comma separated)")
	cmd.Flags().Int64("conversation", 0, "Conversation id")
	cmd.Flags().String("remind-at", "", "Reminder time (RFC3339)")
	cmd.Flags().String("remind-type", string(model.ReminderSingle), "Reminder type")
	cmd.Flags().String("remind-message", "", "Reminder message")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-create records from a file, one title per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString("owner")
			path, _ := cmd.Flags().GetString("file")

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			var inputs []model.RecordInput
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				inputs = append(inputs, model.RecordInput{OwnerID: owner, Title: line})
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			recs, err := svc.CreateBatch(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d records\n", len(recs))
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Owner id (required)")
	cmd.Flags().String("file", "", "Input file (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id>",
		Short: "Fetch a record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Println("not found")
				return nil
			}
			return printJSON(rec)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Apply a partial update to a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			upd := model.RecordUpdate{}
			strFlag := func(name string) *string {
				if !cmd.Flags().Changed(name) {
					return nil
				}
				v, _ := cmd.Flags().GetString(name)
				return &v
			}
			upd.Title = strFlag("title")
			upd.Content = strFlag("content")
			upd.Category = strFlag("category")
			upd.Priority = strFlag("priority")
			upd.Status = strFlag("status")
			if cmd.Flags().Changed("tags") {
				csv, _ := cmd.Flags().GetString("tags")
				upd.Tags = splitTags(csv)
				upd.TagsSet = true
			}
			if cmd.Flags().Changed("conversation") {
				conv, _ := cmd.Flags().GetInt64("conversation")
				upd.ConversationID = &conv
			}
			rec, err := svc.Update(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Println("not found")
				return nil
			}
			return printJSON(rec)
		},
	}
	cmd.Flags().String("title", "", "New title (re-embeds)")
	cmd.Flags().String("content", "", "New body (re-embeds)")
	cmd.Flags().String("category", "", "New category")
	cmd.Flags().String("priority", "", "New priority")
	cmd.Flags().String("status", "", "New status")
	cmd.Flags().String("tags", "", "Replacement tags (comma separated)")
	cmd.Flags().Int64("conversation", 0, "New conversation id")
	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <record-id>",
		Short: "Delete a record and its reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := svc.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("not found")
				return nil
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Similarity search over records",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			query, _ := cmd.Flags().GetString("query")
			opts := model.SearchOptions{Filter: filterFromFlags(cmd)}
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			if cmd.Flags().Changed("threshold") {
				th, _ := cmd.Flags().GetFloat64("threshold")
				opts.Threshold = &th
			}
			res, err := svc.Search(cmd.Context(), query, opts)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringP("query", "q", "", "Query text (required)")
	cmd.Flags().IntP("limit", "k", records.DefaultSearchLimit, "Maximum hits")
	cmd.Flags().Float64("threshold", records.DefaultSearchThreshold, "Minimum similarity score")
	addFilterFlags(cmd)
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			recs, err := svc.List(cmd.Context(), filterFromFlags(cmd), limit)
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
	cmd.Flags().Int("limit", records.DefaultListLimit, "Maximum records")
	addFilterFlags(cmd)
	return cmd
}

func newDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List reminders due for delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			due, err := svc.DueReminders(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return printJSON(due)
		},
	}
}

func newSentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sent <reminder-id>",
		Short: "Mark a reminder as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := svc.MarkReminderSent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("not found")
				return nil
			}
			fmt.Println("marked sent")
			return nil
		},
	}
}
