package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/knowdhq/knowd/internal/core"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run knowd as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install the system service",
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newSystemService(cfgPath, nil)
				if err != nil {
					return err
				}
				if err := svc.Install(); err != nil {
					return fmt.Errorf("install service: %w", err)
				}
				fmt.Println("Service installed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Remove the system service",
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newSystemService(cfgPath, nil)
				if err != nil {
					return err
				}
				if err := svc.Uninstall(); err != nil {
					return fmt.Errorf("uninstall service: %w", err)
				}
				fmt.Println("Service removed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run under the service manager (invoked by the manager)",
			RunE: func(_ *cobra.Command, _ []string) error {
				path := cfgPath
				if path == "" {
					resolved, err := resolveConfigPath()
					if err != nil {
						return err
					}
					path = resolved
				}
				app, _, err := loadApp(path)
				if err != nil {
					return err
				}
				svc, err := newSystemService(cfgPath, app)
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
	)
	return cmd
}

func newSystemService(cfgPath string, app *core.App) (service.Service, error) {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return service.New(&program{app: app}, &service.Config{
		Name:        "knowd",
		DisplayName: "knowd knowledge store",
		Description: "In-process knowledge store with HTTP and MCP surfaces",
		Arguments:   args,
	})
}

// program adapts core.App to the service manager's lifecycle.
type program struct {
	app *core.App
}

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	if p.app == nil {
		return fmt.Errorf("service: no application loaded")
	}
	return p.app.Start()
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	if p.app != nil {
		p.app.Stop()
	}
	return nil
}
