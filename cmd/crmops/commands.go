package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/api"
	"github.com/matiasleandrokruk/crmops/internal/domain/audit"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/infra/logger"
	"github.com/matiasleandrokruk/crmops/internal/infra/sqlite"
	"github.com/matiasleandrokruk/crmops/internal/mcpserver"
	"github.com/matiasleandrokruk/crmops/internal/server"
	"github.com/matiasleandrokruk/crmops/internal/version"
	pkgauth "github.com/matiasleandrokruk/crmops/pkg/auth"
)

// errOperationFailed is returned by exec --strict for a success=false envelope.
// The envelope is already on stdout, so run prints nothing more.
var errOperationFailed = errors.New("operation failed")

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the /mcp endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			deps := api.Deps{
				Registry:           a.registry,
				Invocations:        a.audit,
				DefaultWorkspaceID: a.cfg.DefaultWorkspaceID,
				Logger:             a.logger.Named("api"),
			}
			if a.cfg.AuthEnabled() {
				signer, err := pkgauth.NewSigner(a.cfg.JWTSecret, time.Duration(a.cfg.JWTExpiryHours)*time.Hour)
				if err != nil {
					return err
				}
				deps.Auth = signer
			} else {
				a.logger.Warn("JWT_SECRET not set; API runs unauthenticated",
					zap.String("workspace_id", a.cfg.DefaultWorkspaceID))
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Host = a.cfg.HTTPHost
			srvCfg.Port = a.cfg.HTTPPort
			// The app owns the database, so the server gets none to close.
			srv := server.NewServer(api.NewRouter(deps), nil, srvCfg, a.logger.Named("server"))
			return srv.Run(cmd.Context(), nil)
		},
	}
}

type execOptions struct {
	input       string
	workspaceID string
	userID      string
	strict      bool
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	eo := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec <operation>",
		Short: "Execute one operation and print its JSON envelope",
		Long: "Execute one operation with the JSON input given by --input or read from stdin.\n" +
			"The envelope is printed to stdout; trace lines go to the log at debug level.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := eo.input
			if !cmd.Flags().Changed("input") {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				input = strings.TrimSpace(string(raw))
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			name := args[0]
			ec := operation.ExecutionContext{
				WorkspaceID:   firstNonEmpty(eo.workspaceID, a.cfg.DefaultWorkspaceID),
				UserID:        eo.userID,
				CorrelationID: uuid.NewString(),
			}
			ec.Tracer = logger.Tracer(a.logger.Named("exec"),
				zap.String("operation", name),
				zap.String("correlation_id", ec.CorrelationID))

			out := a.registry.Execute(cmd.Context(), name, input, ec)
			fmt.Fprintln(cmd.OutOrStdout(), out) //nolint:errcheck

			if eo.strict {
				var probe operation.Response
				if err := json.Unmarshal([]byte(out), &probe); err != nil || !probe.Success {
					return errOperationFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eo.input, "input", "", "JSON input (default: read stdin)")
	cmd.Flags().StringVar(&eo.workspaceID, "workspace", "", "workspace id (default: DEFAULT_WORKSPACE_ID)")
	cmd.Flags().StringVar(&eo.userID, "user", "", "calling user id")
	cmd.Flags().BoolVar(&eo.strict, "strict", false, "exit 1 when the operation fails")
	return cmd
}

func newOpsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List registered operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			defs := a.registry.Definitions()
			if asJSON {
				type def struct {
					Name        string          `json:"name"`
					Description string          `json:"description"`
					InputSchema json.RawMessage `json:"inputSchema"`
				}
				out := make([]def, 0, len(defs))
				for _, d := range defs {
					out = append(out, def{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
				}
				return writeIndentedJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION") //nolint:errcheck
			for _, d := range defs {
				fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description) //nolint:errcheck
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print definitions with input schemas as JSON")
	return cmd
}

func newInvocationsCmd(opts *rootOptions) *cobra.Command {
	var (
		workspaceID   string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "invocations",
		Short: "List recorded invocations of a workspace, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 || limit > audit.MaxListLimit || offset < 0 {
				return fmt.Errorf("--limit must be within 1..%d and --offset must not be negative", audit.MaxListLimit)
			}
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			items, total, err := a.audit.List(cmd.Context(), firstNonEmpty(workspaceID, a.cfg.DefaultWorkspaceID), limit, offset)
			if err != nil {
				return err
			}
			return writeIndentedJSON(cmd.OutOrStdout(), map[string]any{
				"data": items,
				"meta": map[string]int{"total": total, "limit": limit, "offset": offset},
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (default: DEFAULT_WORKSPACE_ID)")
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultListLimit, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			db, err := sqlite.NewDB(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.MigrateUp(db); err != nil {
				return err
			}
			v, err := sqlite.MigrationVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s at migration version %d\n", cfg.DatabasePath, v) //nolint:errcheck
			return nil
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var userID, workspaceID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			signer, err := pkgauth.NewSigner(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
			if err != nil {
				return fmt.Errorf("token: %w (set JWT_SECRET)", err)
			}
			token, err := signer.Generate(userID, firstNonEmpty(workspaceID, cfg.DefaultWorkspaceID))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id claim")
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id claim (default: DEFAULT_WORKSPACE_ID)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var userID, workspaceID string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve registered operations as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			identity := mcpserver.Identity{
				WorkspaceID: firstNonEmpty(workspaceID, a.cfg.DefaultWorkspaceID),
				UserID:      userID,
			}
			return mcpserver.Serve(cmd.Context(), mcpserver.New(a.registry, identity, a.logger.Named("mcp")))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id every tool call runs as")
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (default: DEFAULT_WORKSPACE_ID)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String()) //nolint:errcheck
		},
	}
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
