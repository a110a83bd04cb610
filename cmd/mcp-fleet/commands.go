package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-fleet/pkg/fleet"
	"github.com/txn2/mcp-fleet/pkg/registry"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

func registerCmd() *cobra.Command {
	var (
		command     string
		args        []string
		env         []string
		workingDir  string
		displayName string
		noAuto      bool
	)

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a worker server in the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}

			envMap, err := parseEnv(env)
			if err != nil {
				return err
			}

			cfg := registry.ServerConfig{
				Command:     command,
				Args:        args,
				Env:         envMap,
				WorkingDir:  workingDir,
				DisplayName: displayName,
			}
			if noAuto {
				auto := false
				cfg.AutoConnect = &auto
			}

			if err := store.Set(posArgs[0], cfg); err != nil {
				return err
			}
			if err := store.SaveFile(registryPath); err != nil {
				return err
			}
			fmt.Printf("registered %s\n", posArgs[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&command, "command", "", "Executable to launch (required)")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Argument to pass (repeatable)")
	cmd.Flags().StringArrayVar(&env, "env", nil, "KEY=VALUE environment entry (repeatable)")
	cmd.Flags().StringVar(&workingDir, "dir", "", "Working directory for the worker")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Human-friendly name")
	cmd.Flags().BoolVar(&noAuto, "no-auto-connect", false, "Exclude from auto-connect")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a server from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}
			if !store.Remove(args[0]) {
				return fmt.Errorf("server %q not registered", args[0])
			}
			if err := store.SaveFile(registryPath); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}
			for _, name := range store.Names() {
				cfg, _ := store.Get(name)
				line := fmt.Sprintf("%s\t%s %s", name, cfg.Command, strings.Join(cfg.Args, " "))
				if !cfg.ShouldAutoConnect() {
					line += "\t(manual)"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func connectCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "connect [name...]",
		Short: "Connect to servers and report their tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass server names or --all")
			}

			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}

			ctx := signalContext()
			f := fleet.New(store)
			defer f.Close(ctx)

			if all {
				f.AutoConnect(ctx)
			} else {
				for _, name := range args {
					if err := f.Connect(ctx, name); err != nil {
						fmt.Printf("%s: %v\n", name, err)
					}
				}
			}

			for _, name := range f.Connected() {
				defs, err := f.ListTools(ctx, name)
				if err != nil {
					fmt.Printf("%s: connected (%v)\n", name, err)
					continue
				}
				names := make([]string, len(defs))
				for i, def := range defs {
					names[i] = def.Name
				}
				fmt.Printf("%s: connected, tools: %s\n", name, strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Connect every auto-connect server")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show the connection status of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}
			f := fleet.New(store)
			fmt.Println(f.Status(args[0]))
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools <name>",
		Short: "Connect to a server and list its tool schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}

			ctx := signalContext()
			f := fleet.New(store)
			defer f.Close(ctx)

			if err := f.Connect(ctx, args[0]); err != nil {
				return err
			}
			defs, err := f.ListTools(ctx, args[0])
			if err != nil {
				return err
			}

			for _, def := range defs {
				fmt.Printf("%s\t%s\n", def.Name, def.Description)
				if def.InputSchema != nil {
					schema, err := json.MarshalIndent(def.InputSchema, "  ", "  ")
					if err == nil {
						fmt.Printf("  %s\n", schema)
					}
				}
			}
			return nil
		},
	}
}

func callCmd() *cobra.Command {
	var (
		argsJSON string
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "call <name> <tool>",
		Short: "Connect to a server and invoke a tool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			store, err := registry.LoadFile(registryPath)
			if err != nil {
				return err
			}

			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("parsing --args: %w", err)
				}
			}

			ctx := signalContext()
			f := fleet.New(store)
			defer f.Close(ctx)

			server, tool := posArgs[0], posArgs[1]
			if err := f.Connect(ctx, server); err != nil {
				return err
			}

			var onUpdate fleet.UpdateFunc
			if stream {
				onUpdate = func(u worker.StreamUpdate) {
					fmt.Printf("[%s final=%v] %v\n", u.Kind, u.IsFinal, u.Content)
				}
			}

			result, err := f.CallTool(ctx, server, tool, toolArgs, onUpdate)
			if err != nil {
				return err
			}
			for _, block := range result.Content {
				if block.Text != "" {
					fmt.Println(block.Text)
				} else {
					fmt.Printf("[%s %s]\n", block.Type, block.MIMEType)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print stream updates as they arrive")
	return cmd
}

// parseEnv converts KEY=VALUE pairs into a map.
func parseEnv(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid env entry %q, want KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}
