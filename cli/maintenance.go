package cli

import (
	"errors"
	"fmt"
	"os"

	"storefront/auth"
	"storefront/export"
	"storefront/seed"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(rootOpts)
			_, closeDB, err := openStore(cfg, rootOpts)
			if err != nil {
				return err
			}
			defer closeDB()
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Database migrated")
			return nil
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load cities, categories and products from a YAML fixture",
		Long: `Load cities, categories and products from a YAML fixture.

Entries are matched by slug (cities by name), so running the same fixture
twice updates rows instead of duplicating them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			cfg := loadConfig(rootOpts)
			st, closeDB, err := openStore(cfg, rootOpts)
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := seed.Apply(cmd.Context(), st.DB(), fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %d cities, %d categories, %d products\n",
				res.Cities, res.Categories, res.Products)
			return nil
		},
	}
}

// NewCreateUserCommand creates the createuser command.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		password string
		staff    bool
	)

	cmd := &cobra.Command{
		Use:   "createuser <username>",
		Short: "Create a user or reset an existing user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			cfg := loadConfig(rootOpts)
			st, closeDB, err := openStore(cfg, rootOpts)
			if err != nil {
				return err
			}
			defer closeDB()

			if _, err := st.SetPassword(cmd.Context(), args[0], hash, staff); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}
			role := "customer"
			if staff {
				role = "staff"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s saved (%s)\n", args[0], role)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for the user")
	cmd.Flags().BoolVar(&staff, "staff", false, "grant access to the admin routes")

	return cmd
}

// NewExportCommand creates the export-products command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export-products <file.xlsx>",
		Short: "Write all products to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(rootOpts)
			st, closeDB, err := openStore(cfg, rootOpts)
			if err != nil {
				return err
			}
			defer closeDB()

			products, err := st.AllProducts(cmd.Context())
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := export.WriteProducts(out, products); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d products to %s\n", len(products), args[0])
			return nil
		},
	}
}
