package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quill-lang/quillup/internal/app"
	"github.com/quill-lang/quillup/internal/domain"
)

var (
	flagConfig  string
	flagVerbose bool
	flagForce   bool
	flagYes     bool

	rootCmd = &cobra.Command{
		Use:   "quillup",
		Short: "Manage the Quill toolchain and language server",
		Long: `quillup installs and supervises the Quill language server and wraps
common compiler commands for editor integrations.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run FILE",
		Short: "Compile and run a Quill source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			return env.compiler.Run(cmd.Context(), args[0])
		},
	}

	fmtCmd = &cobra.Command{
		Use:   "fmt FILE",
		Short: "Format a Quill source file in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			return env.compiler.Format(cmd.Context(), args[0])
		},
	}

	buildCmd = &cobra.Command{
		Use:   "build FILE",
		Short: "Build an optimized executable from a Quill source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			return env.compiler.Build(cmd.Context(), args[0])
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show compiler and language-server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}

			cv, err := env.compiler.Version(cmd.Context())
			if err != nil {
				fmt.Println("compiler: not found")
			} else {
				fmt.Printf("compiler: %s\n", cv)
			}

			st := env.prober.Probe(cmd.Context())
			switch {
			case !st.Present:
				fmt.Println("language server: not installed")
			case st.Version == "":
				fmt.Printf("language server: %s (version unknown)\n", st.Path)
			default:
				fmt.Printf("language server: %s\n", st.Version)
			}
			return nil
		},
	}

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install or reconcile the language server for the configured channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}

			opts := app.OptionsFromConfig(env.cfg)
			opts.ForceClean = opts.ForceClean || flagForce
			opts.NoPrompt = flagYes

			res, err := env.orch.Acquire(cmd.Context(), opts)
			if err != nil {
				return err
			}
			reportAcquire(res)
			return nil
		},
	}

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update the language server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}

			opts := app.OptionsFromConfig(env.cfg)
			opts.NoPrompt = true

			res, err := env.orch.Acquire(cmd.Context(), opts)
			if err != nil {
				return err
			}
			reportAcquire(res)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start and supervise the language server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			return env.serve(cmd.Context())
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report the installed server version against the stable target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv()
			if err != nil {
				return err
			}
			return env.status(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/quillup/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	installCmd.Flags().BoolVar(&flagForce, "force", false, "remove any existing install first")
	installCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the consent prompt")

	rootCmd.AddCommand(runCmd, fmtCmd, buildCmd, versionCmd, installCmd, updateCmd, serveCmd, statusCmd)
}

// reportAcquire prints the outcome of an acquisition pass.
func reportAcquire(res app.AcquireResult) {
	switch res.Decision {
	case domain.DecisionSkip:
		fmt.Println("language server is up to date")
	case domain.DecisionDeclined:
		fmt.Println("installation declined")
	case domain.DecisionSelfUpdate:
		if res.Output != "" {
			fmt.Println(res.Output)
		} else {
			fmt.Println("language server updated")
		}
	case domain.DecisionBuild:
		fmt.Printf("language server built at %s\n", res.BinPath)
	default:
		fmt.Printf("language server installed at %s", res.BinPath)
		if res.Target != "" {
			fmt.Printf(" (%s)", res.Target)
		}
		fmt.Println()
	}
}
