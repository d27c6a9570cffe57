// ABOUTME: Admin CLI for twinchat data management
// ABOUTME: Works directly against the SQLite store for twins and conversations

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/twinspace/twinchat/internal/config"
	"github.com/twinspace/twinchat/internal/store"
	"github.com/twinspace/twinchat/internal/twins"
)

const banner = `
 _            _            _           _              _           _
| |___      _(_)_ __   ___| |__   __ _| |_        ___| | ___ _ __(_)
| __\ \ /\ / / | '_ \ / __| '_ \ / _' | __|____ / __| |/ _ \ '__| |
| |_ \ V  V /| | | | | (__| | | | (_| | ||_____| (__| |  __/ |  | |
 \__| \_/\_/ |_|_| |_|\___|_| |_|\__,_|\__|      \___|_|\___|_|  |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "twins":
		err = cmdTwins(ctx, args)
	case "conversations":
		err = cmdConversations(ctx, args)
	case "categories":
		err = cmdCategories(ctx, args)
	case "templates":
		err = cmdTemplates(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: twinchat-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  twins                      List all twins")
	fmt.Println("  twins list                 List all twins")
	fmt.Println("  twins show <id>            Show one twin with processing output")
	fmt.Println("  twins delete <id>          Delete a twin and its conversations")
	fmt.Println("  conversations              List conversations")
	fmt.Println("  conversations list [q]     List conversations, optionally filtered")
	fmt.Println("  conversations delete <id>  Delete a conversation")
	fmt.Println("  categories                 List categories")
	fmt.Println("  categories add <name> [description]")
	fmt.Println("                             Create a category")
	fmt.Println("  categories assign <twin-id> <category-id>")
	fmt.Println("                             Put a twin in a category")
	fmt.Println("  categories twins <category-id>")
	fmt.Println("                             List twins in a category")
	fmt.Println("  templates                  List builtin twin templates")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  TWINCHAT_CONFIG            Config file path (default: XDG config dir)")
}

func openStore() (*store.SQLiteStore, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	return st, cfg, nil
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("TWINCHAT_CONFIG")
	if path == "" {
		if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
			path = configDir + "/twinchat/twinchat.yaml"
		} else if homeDir, err := os.UserHomeDir(); err == nil {
			path = homeDir + "/.config/twinchat/twinchat.yaml"
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func cmdTwins(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch sub {
	case "list":
		return listTwins(ctx, st)
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: twinchat-admin twins show <id>")
		}
		return showTwin(ctx, st, args[1])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: twinchat-admin twins delete <id>")
		}
		if err := st.DeleteTwin(ctx, args[1]); err != nil {
			return err
		}
		color.Green("Deleted twin %s", args[1])
		return nil
	default:
		return fmt.Errorf("unknown twins subcommand: %s", sub)
	}
}

func listTwins(ctx context.Context, st *store.SQLiteStore) error {
	all, err := st.ListTwins(ctx, 0)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No twins.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTAGS\tUPDATED")
	for _, twin := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			twin.ID,
			twin.Name,
			colorStatus(twin.Status),
			strings.Join(twin.Tags, ","),
			twin.UpdatedAt.Format(time.DateTime),
		)
	}
	return w.Flush()
}

func showTwin(ctx context.Context, st *store.SQLiteStore, id string) error {
	twin, err := st.GetTwin(ctx, id)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Printf("Twin %s\n", twin.ID)
	fmt.Printf("  Name:        %s\n", twin.Name)
	fmt.Printf("  Status:      %s\n", colorStatus(twin.Status))
	if twin.Description != "" {
		fmt.Printf("  Description: %s\n", twin.Description)
	}
	if twin.ImageURL != "" {
		fmt.Printf("  Image:       %s\n", twin.ImageURL)
	}
	if len(twin.Tags) > 0 {
		fmt.Printf("  Tags:        %s\n", strings.Join(twin.Tags, ", "))
	}
	if twin.Features != "" {
		fmt.Printf("  Features:    %s\n", twin.Features)
	}
	if twin.ModelData != "" {
		fmt.Printf("  Model data:  %s\n", twin.ModelData)
	}
	fmt.Printf("  Created:     %s\n", twin.CreatedAt.Format(time.DateTime))
	fmt.Printf("  Updated:     %s\n", twin.UpdatedAt.Format(time.DateTime))
	return nil
}

func colorStatus(status string) string {
	switch status {
	case store.TwinStatusActive:
		return color.GreenString(status)
	case store.TwinStatusProcessing:
		return color.YellowString(status)
	case store.TwinStatusError:
		return color.RedString(status)
	default:
		return status
	}
}

func cmdConversations(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch sub {
	case "list":
		search := ""
		if len(args) > 1 {
			search = args[1]
		}
		return listConversations(ctx, st, search)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: twinchat-admin conversations delete <id>")
		}
		if err := st.DeleteConversation(ctx, args[1]); err != nil {
			return err
		}
		color.Green("Deleted conversation %s", args[1])
		return nil
	default:
		return fmt.Errorf("unknown conversations subcommand: %s", sub)
	}
}

func listConversations(ctx context.Context, st *store.SQLiteStore, search string) error {
	convs, err := st.ListConversations(ctx, store.ListConversationsParams{
		Page:    1,
		PerPage: 100,
		Search:  search,
	})
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTWIN\tUPDATED")
	for _, conv := range convs {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			conv.ID,
			title,
			conv.TwinID,
			conv.UpdatedAt.Format(time.DateTime),
		)
	}
	return w.Flush()
}

func cmdCategories(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch sub {
	case "list":
		return listCategories(ctx, st)
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: twinchat-admin categories add <name> [description]")
		}
		category := &store.Category{
			ID:        uuid.NewString(),
			Name:      args[1],
			CreatedAt: time.Now().UTC(),
		}
		if len(args) > 2 {
			category.Description = strings.Join(args[2:], " ")
		}
		if err := st.CreateCategory(ctx, category); err != nil {
			return err
		}
		color.Green("Created category %s (%s)", category.Name, category.ID)
		return nil
	case "assign":
		if len(args) < 3 {
			return fmt.Errorf("usage: twinchat-admin categories assign <twin-id> <category-id>")
		}
		if _, err := st.GetTwin(ctx, args[1]); err != nil {
			return err
		}
		if err := st.AssignCategory(ctx, args[1], args[2]); err != nil {
			return err
		}
		color.Green("Assigned twin %s to category %s", args[1], args[2])
		return nil
	case "twins":
		if len(args) < 2 {
			return fmt.Errorf("usage: twinchat-admin categories twins <category-id>")
		}
		members, err := st.ListTwinsByCategory(ctx, args[1])
		if err != nil {
			return err
		}
		if len(members) == 0 {
			fmt.Println("No twins in this category.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tUPDATED")
		for _, twin := range members {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				twin.ID,
				twin.Name,
				colorStatus(twin.Status),
				twin.UpdatedAt.Format(time.DateTime),
			)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown categories subcommand: %s", sub)
	}
}

func listCategories(ctx context.Context, st *store.SQLiteStore) error {
	all, err := st.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No categories.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
	for _, c := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.ID,
			c.Name,
			c.Description,
			c.CreatedAt.Format(time.DateTime),
		)
	}
	return w.Flush()
}

func cmdTemplates(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Twins.TemplateDir == "" {
		fmt.Println("No template directory configured.")
		return nil
	}

	library, err := twins.NewTemplateLibrary(cfg.Twins.TemplateDir, nil)
	if err != nil {
		return err
	}

	all := library.List()
	if len(all) == 0 {
		fmt.Println("No templates.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tTAGS\tDESCRIPTION")
	for _, tmpl := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			tmpl.Slug,
			tmpl.Name,
			strings.Join(tmpl.Tags, ","),
			tmpl.Description,
		)
	}
	return w.Flush()
}
