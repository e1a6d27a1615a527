package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/demusis/rev-textos/internal/config"
	"github.com/demusis/rev-textos/internal/gateway"
)

var modelosCmd = &cobra.Command{
	Use:   "modelos",
	Short: "Lista os modelos disponíveis no provedor configurado",
	RunE:  runModelos,
}

func runModelos(cmd *cobra.Command, args []string) error {
	logger := setupLogging(cmd)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, stageStyle.Render("provedor")+cfg.Provider)

	gw, err := gateway.New(cmd.Context(), gateway.Settings{
		Provider:          cfg.Provider,
		Model:             cfg.ModelName(),
		APIKey:            cfg.APIKey(),
		GCPProject:        cfg.GCPProject,
		GCPRegion:         cfg.GCPRegion,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		Mock:              cfg.Mock,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	names, err := gw.ListModels(cmd.Context())
	if err != nil {
		logger.Warn("model listing failed, showing curated list", "error", err)
		names = gateway.FallbackModels(cfg.Provider)
	}

	active := gw.ModelInfo().Model
	for _, name := range names {
		if name == active {
			fmt.Fprintln(out, okStyle.Render("* "+name))
			continue
		}
		fmt.Fprintln(out, "  "+name)
	}
	return nil
}
