// authcorectl es la CLI de administración: migraciones, altas de admin y
// revocaciones masivas directamente contra el store.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authcore/internal/config"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store"
	"github.com/dropDatabas3/authcore/internal/store/pg"
	migrations "github.com/dropDatabas3/authcore/migrations/postgres"
)

const opTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "authcorectl",
		Short: "CLI de administración de authcore",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "ruta del archivo de configuración")

	root.AddCommand(
		migrateCmd(&configPath),
		userCmd(&configPath),
		sessionsCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withStore abre el store, ejecuta fn y cierra.
func withStore(configPath string, fn func(ctx context.Context, st store.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas en orden",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configPath, func(ctx context.Context, st store.Store) error {
				pgStore, ok := st.(*pg.Store)
				if !ok {
					return fmt.Errorf("migrate requiere driver postgres")
				}

				entries, err := fs.Glob(migrations.FS, "*.sql")
				if err != nil {
					return err
				}
				sort.Strings(entries)

				for _, name := range entries {
					sqlBytes, err := migrations.FS.ReadFile(name)
					if err != nil {
						return err
					}
					if _, err := pgStore.Pool().Exec(ctx, string(sqlBytes)); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					fmt.Println("applied", name)
				}
				return nil
			})
		},
	}
}

func userCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Operaciones sobre usuarios",
	}

	var email, plain, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario (útil para el primer admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || plain == "" {
				return fmt.Errorf("--email y --password son obligatorios")
			}
			return withStore(*configPath, func(ctx context.Context, st store.Store) error {
				hash, err := password.HashDefault(plain)
				if err != nil {
					return err
				}
				user, err := st.Users().Create(ctx, repository.CreateUserInput{
					Email:        strings.ToLower(strings.TrimSpace(email)),
					PasswordHash: hash,
					Role:         repository.Role(strings.ToUpper(role)),
				})
				if err != nil {
					return err
				}
				fmt.Println("created", user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email del usuario")
	create.Flags().StringVar(&plain, "password", "", "contraseña inicial")
	create.Flags().StringVar(&role, "role", "ADMIN", "rol (USER | ADMIN)")

	var disableEmail string
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Deshabilita una cuenta y revoca todo lo emitido",
		RunE: func(cmd *cobra.Command, args []string) error {
			if disableEmail == "" {
				return fmt.Errorf("--email es obligatorio")
			}
			return withStore(*configPath, func(ctx context.Context, st store.Store) error {
				user, err := st.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(disableEmail)))
				if err != nil {
					return err
				}
				if err := st.Users().Disable(ctx, user.ID); err != nil {
					return err
				}
				nTokens, _ := st.Tokens().RevokeAllByUser(ctx, user.ID, repository.RevokeReasonAdmin)
				nSessions, _ := st.Sessions().RevokeAllByUser(ctx, user.ID, "account_disabled")
				fmt.Printf("disabled %s (tokens=%d sessions=%d)\n", user.ID, nTokens, nSessions)
				return nil
			})
		},
	}
	disable.Flags().StringVar(&disableEmail, "email", "", "email del usuario")

	cmd.AddCommand(create, disable)
	return cmd
}

func sessionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Operaciones sobre sesiones",
	}

	var email string
	revokeAll := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoca todas las sesiones y refresh tokens de un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email es obligatorio")
			}
			return withStore(*configPath, func(ctx context.Context, st store.Store) error {
				user, err := st.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
				if err != nil {
					return err
				}
				nTokens, err := st.Tokens().RevokeAllByUser(ctx, user.ID, repository.RevokeReasonAdmin)
				if err != nil {
					return err
				}
				nSessions, err := st.Sessions().RevokeAllByUser(ctx, user.ID, "admin_revoked")
				if err != nil {
					return err
				}
				fmt.Printf("revoked tokens=%d sessions=%d\n", nTokens, nSessions)
				return nil
			})
		},
	}
	revokeAll.Flags().StringVar(&email, "email", "", "email del usuario")

	cmd.AddCommand(revokeAll)
	return cmd
}
