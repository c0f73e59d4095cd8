package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"giftwise/internal/app"
	"giftwise/internal/config"
	"giftwise/internal/gw"
	"giftwise/internal/model"
	"giftwise/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddProfile", "Backup").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := app.LoadConfig(defaults)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// withApp runs fn against a fresh App and records a failure in the log.
func withApp(operation string, fn func(a *app.App) error) error {
	a, err := newApp(operation)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		a.Fail(err)
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPassphrase prompts on the terminal without echoing input.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:           "giftwise",
	Short:         "Track contacts and the gifts you give them",
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := app.LoadConfig(defaults)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Namespace:  %s\n", cfg.Namespace)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("Store:      %s %s%s (quota %d)\n", cfg.Store.Type, cfg.Store.Path, cfg.Store.URL, cfg.Store.Quota)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Server:     %s\n", cfg.Server.Addr)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize storage and show the user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("Init", func(a *app.App) error {
			id, err := a.Storage().UserID()
			if err != nil {
				return err
			}
			fmt.Printf("User ID: %s\n", id)
			return nil
		})
	},
}

// profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage contact profiles",
}

func addProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Full name")
	f.String("title", "", "Job title")
	f.String("company", "", "Company")
	f.String("email", "", "Email address")
	f.String("phone", "", "Phone number")
	f.String("website", "", "Website")
	f.String("industry", "", "Industry")
	f.String("relationship", "", "Relationship (colleague, client, friend, ...)")
	f.String("budget", "", "Budget range (low, medium, high, premium)")
	f.StringSlice("occasions", nil, "Occasions, comma separated")
	f.StringSlice("interests", nil, "Interests, comma separated")
	f.String("notes", "", "Notes")
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		fields := model.ProfileFields{Source: "cli"}
		fields.Name, _ = f.GetString("name")
		fields.Title, _ = f.GetString("title")
		fields.Company, _ = f.GetString("company")
		fields.Email, _ = f.GetString("email")
		fields.Phone, _ = f.GetString("phone")
		fields.Website, _ = f.GetString("website")
		fields.Industry, _ = f.GetString("industry")
		fields.Notes, _ = f.GetString("notes")
		fields.Occasions, _ = f.GetStringSlice("occasions")
		fields.Interests, _ = f.GetStringSlice("interests")
		rel, _ := f.GetString("relationship")
		budget, _ := f.GetString("budget")
		fields.Relationship = model.Relationship(rel)
		fields.BudgetRange = model.BudgetRange(budget)

		if fields.Name == "" {
			return errors.New("--name is required")
		}
		if !fields.Relationship.Valid() {
			return fmt.Errorf("unknown relationship %q", rel)
		}
		if !fields.BudgetRange.Valid() {
			return fmt.Errorf("unknown budget range %q", budget)
		}

		return withApp("AddProfile", func(a *app.App) error {
			p, err := a.Storage().AddProfile(fields)
			if err != nil {
				return err
			}
			fmt.Printf("Added profile %s (%s)\n", p.ID, p.Name)
			return nil
		})
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("ListProfiles", func(a *app.App) error {
			profiles, err := a.Storage().Profiles()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles.")
				return nil
			}
			for _, p := range profiles {
				last := "-"
				if p.LastGiftDate != nil {
					last = p.LastGiftDate.Format("2006-01-02")
				}
				fmt.Printf("%s  %-24s  %-20s  gifts:%d  last:%s\n", p.ID, p.Name, p.Company, p.GiftCount, last)
			}
			return nil
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("ShowProfile", func(a *app.App) error {
			p, err := a.Storage().Profile(args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("profile %s not found", args[0])
			}
			return printJSON(p)
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update fields of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var patch model.ProfilePatch
		str := func(name string) *string {
			if !f.Changed(name) {
				return nil
			}
			v, _ := f.GetString(name)
			return &v
		}
		list := func(name string) *[]string {
			if !f.Changed(name) {
				return nil
			}
			v, _ := f.GetStringSlice(name)
			return &v
		}
		patch.Name = str("name")
		patch.Title = str("title")
		patch.Company = str("company")
		patch.Email = str("email")
		patch.Phone = str("phone")
		patch.Website = str("website")
		patch.Industry = str("industry")
		patch.Notes = str("notes")
		patch.Occasions = list("occasions")
		patch.Interests = list("interests")
		if v := str("relationship"); v != nil {
			rel := model.Relationship(*v)
			if !rel.Valid() {
				return fmt.Errorf("unknown relationship %q", *v)
			}
			patch.Relationship = &rel
		}
		if v := str("budget"); v != nil {
			budget := model.BudgetRange(*v)
			if !budget.Valid() {
				return fmt.Errorf("unknown budget range %q", *v)
			}
			patch.BudgetRange = &budget
		}

		return withApp("UpdateProfile", func(a *app.App) error {
			p, err := a.Storage().UpdateProfile(args[0], patch)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("profile %s not found", args[0])
			}
			fmt.Printf("Updated profile %s\n", p.ID)
			return nil
		})
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a profile (its gift history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("DeleteProfile", func(a *app.App) error {
			if err := a.Storage().DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted profile %s\n", args[0])
			return nil
		})
	},
}

// gift command
var giftCmd = &cobra.Command{
	Use:   "gift",
	Short: "Record and list gifts",
}

var giftAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a gift",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var fields model.GiftFields
		fields.ProfileID, _ = f.GetString("profile")
		fields.GiftName, _ = f.GetString("name")
		fields.Occasion, _ = f.GetString("occasion")
		fields.Price, _ = f.GetFloat64("price")
		fields.Notes, _ = f.GetString("notes")
		if fields.GiftName == "" {
			return errors.New("--name is required")
		}
		if fields.Price < 0 {
			return errors.New("--price must not be negative")
		}

		return withApp("AddGift", func(a *app.App) error {
			g, err := a.Storage().AddGiftToHistory(fields)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded gift %s (%s)\n", g.ID, g.GiftName)
			return nil
		})
	},
}

var giftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded gifts",
	RunE: func(cmd *cobra.Command, args []string) error {
		profileID, _ := cmd.Flags().GetString("profile")

		return withApp("ListGifts", func(a *app.App) error {
			var (
				gifts []model.GiftEntry
				err   error
			)
			if profileID != "" {
				gifts, err = a.Storage().GiftsForProfile(profileID)
			} else {
				gifts, err = a.Storage().GiftHistory()
			}
			if err != nil {
				return err
			}
			if len(gifts) == 0 {
				fmt.Println("No gifts recorded.")
				return nil
			}
			for _, g := range gifts {
				recipient := "(unknown)"
				p, err := a.Storage().ResolveGift(g)
				if err != nil {
					return err
				}
				if p != nil {
					recipient = p.Name
				}
				fmt.Printf("%s  %s  %-24s  %-20s  %8.2f  %s\n",
					g.ID,
					g.GivenAt.Format("2006-01-02"),
					g.GiftName,
					recipient,
					g.Price,
					g.Occasion,
				)
			}
			return nil
		})
	},
}

// settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("ShowSettings", func(a *app.App) error {
			s, err := a.Storage().Settings()
			if err != nil {
				return err
			}
			if s.GeminiAPIKey != "" {
				s.GeminiAPIKey = "(set)"
			}
			return printJSON(s)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var patch model.SettingsPatch
		if f.Changed("theme") {
			v, _ := f.GetString("theme")
			theme := model.Theme(v)
			if theme != model.ThemeLight && theme != model.ThemeDark {
				return fmt.Errorf("unknown theme %q", v)
			}
			patch.Theme = &theme
		}
		if f.Changed("notifications") {
			v, _ := f.GetBool("notifications")
			patch.EnableNotifications = &v
		}
		if f.Changed("auto-backup") {
			v, _ := f.GetBool("auto-backup")
			patch.AutoBackup = &v
		}
		if f.Changed("retention") {
			v, _ := f.GetInt("retention")
			if v < 0 {
				return errors.New("--retention must not be negative")
			}
			patch.DataRetention = &v
		}
		if f.Changed("api-key") {
			v, _ := f.GetString("api-key")
			patch.GeminiAPIKey = &v
		}

		return withApp("UpdateSettings", func(a *app.App) error {
			if _, err := a.Storage().UpdateSettings(patch); err != nil {
				return err
			}
			fmt.Println("Settings updated.")
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show gift statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("Stats", func(a *app.App) error {
			st, err := a.Storage().Stats()
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("Usage", func(a *app.App) error {
			u, err := a.Storage().StorageUsage()
			if err != nil {
				return err
			}
			fmt.Printf("%s used (%.1f%%)\n", u.Formatted, u.Percentage)
			return nil
		})
	},
}

// export / import / clear
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all data to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		return withApp("Export", func(a *app.App) error {
			data, name, err := a.Storage().ExportJSON()
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if out == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Printf("Exported to %s\n", out)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace all data with the contents of an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		return withApp("Import", func(a *app.App) error {
			res, err := a.Storage().ImportData(data)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all data and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to clear data without --yes")
		}

		return withApp("ClearAllData", func(a *app.App) error {
			if err := a.Storage().ClearAllData(); err != nil {
				return err
			}
			fmt.Println("All data cleared.")
			return nil
		})
	},
}

// backup commands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a backup to the configured vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("Backup", func(a *app.App) error {
			backups, err := a.Backups()
			if err != nil {
				return err
			}
			name, err := backups.Backup()
			if err != nil {
				return err
			}
			fmt.Printf("Backed up to %s\n", name)
			return nil
		})
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backups in the configured vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("ListBackups", func(a *app.App) error {
			backups, err := a.Backups()
			if err != nil {
				return err
			}
			names, err := backups.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No backups.")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore all data from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		return withApp("Restore", func(a *app.App) error {
			backups, err := a.Backups()
			if err != nil {
				return err
			}

			var dc gw.DecryptionContext
			if gw.IsEncrypted(name) {
				enc := a.Encryptor()
				if enc == nil {
					return errors.New("backup is encrypted but encryption is disabled")
				}
				passphrase, err := readPassphrase("Passphrase: ")
				if err != nil {
					return err
				}
				dc, err = enc.Unlock(passphrase)
				if err != nil {
					return err
				}
			}

			res, err := backups.Restore(name, dc)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		})
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		return withApp("KeysInit", func(a *app.App) error {
			enc := a.Encryptor()
			if enc == nil {
				return errors.New("encryption is disabled; set encryption.type in the config")
			}
			if enc.IsConfigured() && !force {
				return errors.New("keys already exist; use --force to replace them")
			}

			passphrase, err := readPassphrase("New passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != confirm {
				return errors.New("passphrases do not match")
			}

			if err := enc.Setup(passphrase); err != nil {
				return err
			}
			fmt.Println("Backup keys created.")
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		return withApp("Serve", func(a *app.App) error {
			if addr == "" {
				addr = a.Config().Server.Addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.Storage(), a.Config().Server.AllowedOrigins, a.Logger())
			defer srv.Close()

			fmt.Printf("Listening on %s\n", addr)
			return srv.ListenAndServe(ctx, addr)
		})
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// profile subcommands
	addProfileFlags(profileAddCmd)
	addProfileFlags(profileUpdateCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	// gift subcommands
	giftAddCmd.Flags().String("profile", "", "Profile id of the recipient")
	giftAddCmd.Flags().String("name", "", "Gift name")
	giftAddCmd.Flags().String("occasion", "", "Occasion")
	giftAddCmd.Flags().Float64("price", 0, "Price")
	giftAddCmd.Flags().String("notes", "", "Notes")
	giftListCmd.Flags().String("profile", "", "Only gifts for this profile id")
	giftCmd.AddCommand(giftAddCmd)
	giftCmd.AddCommand(giftListCmd)

	// settings subcommands
	settingsSetCmd.Flags().String("theme", "", "light or dark")
	settingsSetCmd.Flags().Bool("notifications", true, "Enable notifications")
	settingsSetCmd.Flags().Bool("auto-backup", false, "Enable automatic backups")
	settingsSetCmd.Flags().Int("retention", 0, "Data retention in days")
	settingsSetCmd.Flags().String("api-key", "", "Gemini API key")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	keysInitCmd.Flags().Bool("force", false, "Replace existing keys")
	keysCmd.AddCommand(keysInitCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file (\"-\" for stdout)")
	clearCmd.Flags().Bool("yes", false, "Confirm deleting all data")
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(giftCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(serveCmd)
}
